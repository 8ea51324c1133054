package httpx

type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyEmail     ctxKey = "email"
	CtxKeyRoles     ctxKey = "roles"
)
