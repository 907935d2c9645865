package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetActorID(t *testing.T) {
	ctx := context.Background()

	// Background jobs run without an actor.
	assert.Equal(t, "system", GetActorID(ctx))
	assert.Nil(t, GetActor(ctx))

	ctx = WithActor(ctx, &ActorContext{UserID: "u-1", Email: "a@b.c"})
	assert.Equal(t, "u-1", GetActorID(ctx))
	assert.Equal(t, "a@b.c", GetActor(ctx).Email)

	// An actor without a user id still attributes to system.
	assert.Equal(t, "system", GetActorID(WithActor(context.Background(), &ActorContext{})))
}
