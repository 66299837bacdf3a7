package presentation

const (
	TTag         = "t"
	XTag         = "x"
	ExpTag       = "expiration"
	AuthKey      = "Authorization"
	TypeKey      = "Content-Type"
	APIKeyHeader = "X-API-Key"
	ReasonTag    = "X-Reason"
	PK           = "pk"
	IDParam      = "id"
	PubKeyParam  = "pubkey"

	AuthKind     = 24242
	ActionCreate = "upload"
	ActionDelete = "delete"

	MediaField       = "media"
	DescriptionField = "description"
	VisibilityField  = "visibility"
	ExpiresInField   = "expires_in"
)
