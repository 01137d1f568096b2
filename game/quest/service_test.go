package quest

import (
	"context"
	"testing"

	"github.com/kasuganosora/miridle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDefs() []*QuestDef {
	return []*QuestDef{
		{
			Key:  "hen_hunt",
			Name: "Hen Hunt",
			Objectives: []Objective{
				{Monster: "hen", Count: 3, Label: "Kill hens"},
			},
		},
		{
			Key:  "farmyard",
			Name: "Farmyard",
			Objectives: []Objective{
				{Monster: "hen", Count: 1},
				{Monster: "deer", Count: 1},
			},
		},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.SetupTestDB(t), testDefs(), zap.NewNop())
}

func TestAccept(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Accept(ctx, 1, "hen_hunt"))
	assert.ErrorIs(t, svc.Accept(ctx, 1, "hen_hunt"), ErrAlreadyAccepted)
	assert.ErrorIs(t, svc.Accept(ctx, 1, "dragon"), ErrUnknownQuest)
	// Another character may take the same quest.
	require.NoError(t, svc.Accept(ctx, 2, "hen_hunt"))
}

func TestNotifyKill_CountsAndCompletes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Accept(ctx, 1, "hen_hunt"))

	assert.False(t, svc.NotifyKill(ctx, 1, "deer"))
	for range 3 {
		assert.True(t, svc.NotifyKill(ctx, 1, "hen"))
	}
	// Completed quests no longer count.
	assert.False(t, svc.NotifyKill(ctx, 1, "hen"))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)
	assert.Equal(t, 3, list[0].Progress["hen"])
	assert.Equal(t, "Hen Hunt", list[0].Name)
}

func TestNotifyKill_MultiObjective(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Accept(ctx, 7, "farmyard"))

	assert.True(t, svc.NotifyKill(ctx, 7, "hen"))
	list, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.False(t, list[0].Completed)

	assert.True(t, svc.NotifyKill(ctx, 7, "deer"))
	list, err = svc.List(ctx, 7)
	require.NoError(t, err)
	assert.True(t, list[0].Completed)
}

func TestNotifyKill_OtherCharacterUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Accept(ctx, 1, "hen_hunt"))

	assert.False(t, svc.NotifyKill(ctx, 2, "hen"))
	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list[0].Progress)
}

func TestNop(t *testing.T) {
	var n KillNotifier = Nop{}
	assert.False(t, n.NotifyKill(context.Background(), 1, "hen"))
}
