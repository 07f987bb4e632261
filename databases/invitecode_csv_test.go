package databases_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInviteCSVDatabase_LoadAllMissingFile(t *testing.T) {
	db := databases.NewInviteCSVDatabase(filepath.Join(t.TempDir(), "codes.csv"))

	rows, err := db.LoadAll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestInviteCSVDatabase_LoadAllReadError(t *testing.T) {
	// a directory cannot be read as a file
	db := databases.NewInviteCSVDatabase(t.TempDir())

	rows, err := db.LoadAll(context.Background())
	assert.Error(t, err)
	assert.Nil(t, rows)
}

func TestInviteCSVDatabase_LoadAllQuotedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	writeFile(t, path, "code,userid,note\n"+
		"\"AAA,1\",u1,\"said \"\"hi\"\"\"\n"+
		"BBB,,\"line one\nline two\"\n"+
		"CCC\n")

	rows, err := databases.NewInviteCSVDatabase(path).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "AAA,1", rows[0].Code)
	assert.Equal(t, "u1", rows[0].AssignedUser)
	assert.Equal(t, `said "hi"`, rows[0].Extra["note"])

	assert.Equal(t, "BBB", rows[1].Code)
	assert.False(t, rows[1].IsAssigned())
	assert.Equal(t, "line one\nline two", rows[1].Extra["note"])

	// short row: missing trailing fields default to empty
	assert.Equal(t, "CCC", rows[2].Code)
	assert.Equal(t, "", rows[2].AssignedUser)
	assert.Equal(t, "", rows[2].Extra["note"])
}

func TestInviteCSVDatabase_LegacyInviteColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	writeFile(t, path, "invite,userid\n\"X1\",\nX2,42\n")

	db := databases.NewInviteCSVDatabase(path)
	rows, err := db.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "X1", rows[0].Code)
	assert.Equal(t, "42", rows[1].AssignedUser)

	rows[0].AssignedUser = "7"
	require.NoError(t, db.SaveAll(context.Background(), rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "invite,userid\nX1,7\nX2,42\n", string(data))
}

func TestInviteCSVDatabase_SaveAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	writeFile(t, path, "note,userid,code\nfirst,,A\n\"a, b\",,B\n")

	db := databases.NewInviteCSVDatabase(path)
	rows, err := db.LoadAll(context.Background())
	require.NoError(t, err)

	rows[1].AssignedUser = `odd"user`
	require.NoError(t, db.SaveAll(context.Background(), rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "note,userid,code\nfirst,,A\n\"a, b\",\"odd\"\"user\",B\n", string(data))

	again, err := db.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `odd"user`, again[1].AssignedUser)
	assert.Equal(t, "a, b", again[1].Extra["note"])
}

func TestInviteCSVDatabase_SaveAllEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	writeFile(t, path, "code,userid\nA,\n")

	db := databases.NewInviteCSVDatabase(path)
	assert.NoError(t, db.SaveAll(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "code,userid\nA,\n", string(data))
}

func TestInviteCSVDatabase_SaveAllWithoutPriorLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "codes.csv")
	db := databases.NewInviteCSVDatabase(path)

	err := db.SaveAll(context.Background(), []*models.InviteCode{{Code: "A"}, {Code: "B", AssignedUser: "9"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "code,userid\nA,\nB,9\n", string(data))
}

func TestInviteCSVDatabase_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.csv")
	db := databases.NewInviteCSVDatabase(path)

	_, _, err := db.Export(context.Background())
	assert.ErrorIs(t, err, databases.ErrEmptyTable)

	writeFile(t, path, "code,userid\nA,1\nB,\n")
	data, n, err := db.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "code,userid\nA,1\nB,\n", string(data))
}
