package pgxutil

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToPgxTxOptions_Nil(t *testing.T) {
	opts := ToPgxTxOptions(nil)
	assert.Equal(t, pgx.TxOptions{}, opts)
}

func TestToPgxTxOptions_ReadCommittedWrite(t *testing.T) {
	opts := ToPgxTxOptions(&sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  false,
	})
	assert.Equal(t, pgx.ReadCommitted, opts.IsoLevel)
	assert.Equal(t, pgx.ReadWrite, opts.AccessMode)
}

func TestToPgxIsoLevel(t *testing.T) {
	tests := []struct {
		level sql.IsolationLevel
		want  pgx.TxIsoLevel
	}{
		{sql.LevelDefault, pgx.TxIsoLevel("")},
		{sql.LevelSerializable, pgx.Serializable},
		{sql.LevelLinearizable, pgx.Serializable},
		{sql.LevelRepeatableRead, pgx.RepeatableRead},
		{sql.LevelSnapshot, pgx.RepeatableRead},
		{sql.LevelReadCommitted, pgx.ReadCommitted},
		{sql.LevelWriteCommitted, pgx.ReadCommitted},
		{sql.LevelReadUncommitted, pgx.ReadUncommitted},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ToPgxIsoLevel(tt.level))
		})
	}
}

func TestToPgxAccessMode(t *testing.T) {
	assert.Equal(t, pgx.ReadOnly, ToPgxAccessMode(true))
	assert.Equal(t, pgx.ReadWrite, ToPgxAccessMode(false))
}
