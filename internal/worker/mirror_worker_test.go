package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/ledger/memory"
)

type flakyMirror struct {
	*memory.Store
	failFor string
}

func (f *flakyMirror) Save(ctx context.Context, account string, doc core.AppData) error {
	if account == f.failFor {
		return errors.New("mirror unavailable")
	}
	return f.Store.Save(ctx, account, doc)
}

func TestHandleSyncMessageCopiesDocument(t *testing.T) {
	ctx := context.Background()
	local, mirror := memory.New(), memory.New()
	doc := core.DefaultAppData(core.TemplateClassic)
	doc.Theme = core.ThemeLight
	require.NoError(t, local.Save(ctx, "acc", doc))

	w := NewMirrorWorker(local, mirror, 1, nil)
	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewDocumentSyncMessage("acc")))

	got, ok, err := mirror.Load(ctx, "acc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.ThemeLight, got.Theme)

	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewDocumentSyncMessage("ghost")))
	_, ok, _ = mirror.Load(ctx, "ghost")
	assert.False(t, ok)
}

func TestHandleSyncMessageReportsMirrorFailure(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	require.NoError(t, local.Save(ctx, "acc", core.DefaultAppData(core.TemplateClassic)))

	w := NewMirrorWorker(local, &flakyMirror{Store: memory.New(), failFor: "acc"}, 1, nil)
	assert.Error(t, w.HandleSyncMessage(ctx, amqp.NewDocumentSyncMessage("acc")))
}

func TestStartupSyncMirrorsAllAccounts(t *testing.T) {
	ctx := context.Background()
	local := memory.New()
	for _, acc := range []string{"a", "b", "c"} {
		require.NoError(t, local.Save(ctx, acc, core.DefaultAppData(core.TemplateSimple)))
	}
	mirror := &flakyMirror{Store: memory.New(), failFor: "b"}

	synced, failed, err := NewMirrorWorker(local, mirror, 2, nil).StartupSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Equal(t, 1, failed)

	accounts, err := mirror.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, accounts)
}
