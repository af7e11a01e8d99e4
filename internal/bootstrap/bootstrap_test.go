package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Roan1982/saraianew/internal/config"
	"github.com/Roan1982/saraianew/internal/domain"
)

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()
	rt, err := Open(ctx, config.Config{Store: config.StoreMemory, Location: time.UTC}, nil)
	require.NoError(t, err)
	defer rt.Close()

	require.Nil(t, rt.Pool)
	require.NotNil(t, rt.Assistant)

	user, err := rt.Service.SeedUser(ctx, domain.User{Username: "empleado1", Role: domain.RoleEmployee})
	require.NoError(t, err)

	reply, err := rt.Assistant.Reply(ctx, user.ID, "hola", rt.Service.Now())
	require.NoError(t, err)
	require.NotEmpty(t, reply.Text)
}
