// Package testutil starts the backing services used by integration tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ReplicaSet     = "rs0"
	MinioAccessKey = "minioadmin"
	MinioSecretKey = "minioadmin"
)

// StartMongoReplicaSet runs a single-node replica set; change streams need one.
// The TTL monitor is set to a one second period so expiry tests stay short.
func StartMongoReplicaSet(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		Cmd:          []string{"--replSet", ReplicaSet, "--bind_ip_all"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, err
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()

		return "", nil, err
	}

	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		terminate()

		return "", nil, err
	}

	uri := fmt.Sprintf("mongodb://%s/?directConnection=true", net.JoinHostPort(host, port.Port()))
	if err := initiate(ctx, uri); err != nil {
		terminate()

		return "", nil, err
	}

	return uri, terminate, nil
}

func initiate(ctx context.Context, uri string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(ctx) }()

	admin := client.Database("admin")
	err = admin.RunCommand(ctx, bson.D{{Key: "replSetInitiate", Value: bson.M{
		"_id":     ReplicaSet,
		"members": bson.A{bson.M{"_id": 0, "host": "localhost:27017"}},
	}}}).Err()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(60 * time.Second)
	for {
		var hello struct {
			IsWritablePrimary bool `bson:"isWritablePrimary"`
		}
		if err := admin.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err == nil &&
			hello.IsWritablePrimary {
			break
		}
		if time.Now().After(deadline) {
			return errors.New("replica set did not elect a primary")
		}
		time.Sleep(250 * time.Millisecond)
	}

	return admin.RunCommand(ctx, bson.D{{Key: "setParameter", Value: 1}, {Key: "ttlMonitorSleepSecs", Value: 1}}).Err()
}

// StartMinio returns the host:port of a fresh MinIO server.
func StartMinio(ctx context.Context) (string, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinioAccessKey,
			"MINIO_ROOT_PASSWORD": MinioSecretKey,
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", nil, err
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		terminate()

		return "", nil, err
	}

	return endpoint, terminate, nil
}
