package grpc

import (
	"context"
	"strconv"

	"google.golang.org/grpc/metadata"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// 上游 gateway 驗證完身分後放進 metadata 的欄位
const (
	MetadataActorID   = "x-actor-id"
	MetadataActorRole = "x-actor-role"
)

// WithActor 把呼叫者身分放進 outgoing metadata (client 端使用)
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		MetadataActorID, strconv.FormatInt(actor.ID, 10),
		MetadataActorRole, string(actor.Role))
}

// actorFromContext 從 incoming metadata 取出呼叫者
func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, false
	}
	ids := md.Get(MetadataActorID)
	roles := md.Get(MetadataActorRole)
	if len(ids) != 1 || len(roles) != 1 {
		return domain.Actor{}, false
	}
	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return domain.Actor{}, false
	}
	switch role := domain.Role(roles[0]); role {
	case domain.RoleCustomer, domain.RoleEmployee:
		return domain.Actor{ID: id, Role: role}, true
	default:
		return domain.Actor{}, false
	}
}
