package subscriptions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/distributor/internal/cmd/cmdtest"
	"github.com/hashicorp-forge/distributor/pkg/models"
	registry "github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

func TestRun_ListAndDelete(t *testing.T) {
	env := cmdtest.NewEnv(t, "https://peer.example", "")
	reg := registry.NewGormRegistry(env.DB(t), nil)
	ctx := context.Background()

	for i, base := range []string{"https://a.example", "https://b.example"} {
		require.NoError(t, reg.Upsert(ctx, &models.Subscription{
			LocalPostID:   9,
			RemoteBaseURL: base,
			RemotePostID:  int64(200 + i),
			Signature:     "sig",
		}))
	}

	base, ui := env.Command()
	require.Equal(t, 0, (&Command{Command: base}).Run([]string{"-config", cmdtest.ConfigPath, "9"}))
	out := ui.OutputWriter.String()
	assert.Contains(t, out, "https://a.example\tremote 200")
	assert.Contains(t, out, "https://b.example\tremote 201")
	assert.NotContains(t, out, "sig")

	base, ui = env.Command()
	require.Equal(t, 0, (&Command{Command: base}).Run([]string{"-config", cmdtest.ConfigPath, "-delete", "https://a.example/", "9"}), ui.ErrorWriter.String())

	subs, err := reg.ListForPost(ctx, 9)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://b.example", subs[0].RemoteBaseURL)

	base, ui = env.Command()
	assert.Equal(t, 1, (&Command{Command: base}).Run([]string{"-config", cmdtest.ConfigPath, "-delete", "https://a.example", "9"}))
	assert.Contains(t, ui.ErrorWriter.String(), "subscription not found")
}

func TestRun_Empty(t *testing.T) {
	env := cmdtest.NewEnv(t, "https://peer.example", "")
	base, ui := env.Command()

	assert.Equal(t, 0, (&Command{Command: base}).Run([]string{"-config", cmdtest.ConfigPath, "3"}))
	assert.Contains(t, ui.OutputWriter.String(), "has no subscriptions")
}
