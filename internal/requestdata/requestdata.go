package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData carries the identity resolved by the auth middleware plus the
// request correlation id. Services trust these values.
type RequestData struct {
	UserID    uuid.UUID
	Role      string
	RequestID string
}

const (
	RoleParent = "parent"
	RoleAdmin  = "admin"
)

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// IsAdmin reports whether the request was made with the admin role.
func (rd *RequestData) IsAdmin() bool {
	return rd != nil && rd.Role == RoleAdmin
}
