package model_test

import (
	"testing"

	"github.com/kasuganosora/miridle/server/model"
	"github.com/kasuganosora/miridle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	char := &model.Character{Name: "Hero", Profession: "warrior", Level: 12, MapKey: "skull_cave"}
	require.NoError(t, db.Create(char).Error)
	assert.Greater(t, char.ID, int64(0))

	var found model.Character
	require.NoError(t, db.First(&found, char.ID).Error)
	assert.Equal(t, "Hero", found.Name)
	assert.Equal(t, 12, found.Level)

	rec := &model.SaveRecord{Name: "Hero", Version: 4, Payload: []byte{1, 2, 3}}
	require.NoError(t, db.Create(rec).Error)
	var gotRec model.SaveRecord
	require.NoError(t, db.Where("name = ?", "Hero").First(&gotRec).Error)
	assert.Equal(t, []byte{1, 2, 3}, gotRec.Payload)

	qp := &model.QuestProgress{CharID: char.ID, QuestKey: "hen_hunt", Kills: datatypes.NewJSONType(model.KillCounts{"hen": 1})}
	require.NoError(t, db.Create(qp).Error)
	var gotQP model.QuestProgress
	require.NoError(t, db.First(&gotQP, qp.ID).Error)
	assert.Equal(t, 1, gotQP.Kills.Data()["hen"])
	assert.Equal(t, model.QuestActive, gotQP.Status)

	dup := &model.QuestProgress{CharID: char.ID, QuestKey: "hen_hunt"}
	assert.Error(t, db.Create(dup).Error, "a quest is accepted once per character")

	ev := &model.EventLog{Room: "Hero", Type: "kill", Frame: 30, Payload: datatypes.JSON(`{"monster":"hen"}`)}
	require.NoError(t, db.Create(ev).Error)
	var n int64
	require.NoError(t, db.Model(&model.EventLog{}).Where("type = ?", "kill").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
