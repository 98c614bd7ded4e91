package matchapi

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/grpc/metadata"

	svcErr "github.com/oggyb/match-engine/internal/errors"
)

// UserIDHeader carries the authenticated user id, set by the auth gateway.
const UserIDHeader = "x-user-id"

// authorize checks that the caller acts as userID.
func authorize(ctx context.Context, userID uint64) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return svcErr.Unauthorized("missing credentials")
	}
	values := md.Get(UserIDHeader)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return svcErr.Unauthorized("missing " + UserIDHeader)
	}
	caller, err := strconv.ParseUint(strings.TrimSpace(values[0]), 10, 64)
	if err != nil || caller == 0 {
		return svcErr.Unauthorized("malformed " + UserIDHeader)
	}
	if caller != userID {
		return svcErr.Unauthorized("cannot act on behalf of another user")
	}
	return nil
}
