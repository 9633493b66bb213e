package cont

import (
	"context"

	"codegate/entity"
)

type ctxKey string

const AdminSessionKey ctxKey = "adminSession"

func PutAdmin(c context.Context, session *entity.AdminSession) context.Context {
	return context.WithValue(c, AdminSessionKey, *session)
}

// GetAdmin returns nil when the request was not authenticated.
func GetAdmin(c context.Context) *entity.AdminSession {
	session, ok := c.Value(AdminSessionKey).(entity.AdminSession)
	if !ok {
		return nil
	}
	return &session
}
