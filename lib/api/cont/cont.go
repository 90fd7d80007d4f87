package cont

import "context"

type ctxKey string

const adminIdKey ctxKey = "adminId"

// PutAdminId stores the authenticated administrator's id in the request
// context; set by the authenticate middleware after token verification.
func PutAdminId(c context.Context, id string) context.Context {
	return context.WithValue(c, adminIdKey, id)
}

func GetAdminId(c context.Context) string {
	id, ok := c.Value(adminIdKey).(string)
	if !ok {
		return ""
	}
	return id
}
