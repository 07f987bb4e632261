package databases

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/invite-bot/models"
)

const inviteCodeName = "inviteCodes"

// inviteOrder is the table order of the collection. Imported documents often
// carry no position, so insertion order (_id) breaks ties.
var inviteOrder = bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}}

type inviteMongoDatabase struct {
	db DatabaseHelper

	mu sync.Mutex
	// loaded maps each code to its assignment as last read or written
	loaded map[string]string
}

// NewInviteMongoDatabase initializes the invite table backed by a mongo
// collection. Rows are ordered by position and then insertion order so the
// first free row is the same one the flat file would hand out.
func NewInviteMongoDatabase(db DatabaseHelper) InviteCodeDatabase {
	return &inviteMongoDatabase{
		db:     db,
		loaded: map[string]string{},
	}
}

func (c *inviteMongoDatabase) LoadAll(ctx context.Context) ([]*models.InviteCode, error) {
	opts := options.Find().SetSort(inviteOrder)
	cur, err := c.db.Collection(inviteCodeName).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding invite codes: %w", err)
	}

	var inviteCodes []models.InviteCode
	if err := cur.Decode(&inviteCodes); err != nil {
		return nil, fmt.Errorf("decoding invite codes: %w", err)
	}

	loaded := make(map[string]string, len(inviteCodes))
	rows := make([]*models.InviteCode, len(inviteCodes))
	for i := range inviteCodes {
		inviteCodes[i].Position = i
		rows[i] = &inviteCodes[i]
		loaded[inviteCodes[i].Code] = inviteCodes[i].AssignedUser
	}

	c.mu.Lock()
	c.loaded = loaded
	c.mu.Unlock()
	return rows, nil
}

// SaveAll writes only the rows whose assignment differs from what was last
// loaded, so a claim is a single document update. Rows the collection has
// not been seen holding are upserted whole.
func (c *inviteMongoDatabase) SaveAll(ctx context.Context, rows []*models.InviteCode) error {
	if len(rows) == 0 {
		return nil
	}

	coll := c.db.Collection(inviteCodeName)
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		assigned, known := c.loaded[row.Code]
		if known && assigned == row.AssignedUser {
			continue
		}

		filter := bson.M{"code": row.Code}
		var err error
		if known {
			_, err = coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"userid": row.AssignedUser}}, options.Update())
		} else {
			update := bson.M{"$set": bson.M{
				"userid":   row.AssignedUser,
				"position": row.Position,
				"extra":    row.Extra,
			}}
			_, err = coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		}
		if err != nil {
			return fmt.Errorf("updating invite code at position %d: %w", row.Position, err)
		}
		c.loaded[row.Code] = row.AssignedUser
	}
	return nil
}

func (c *inviteMongoDatabase) Export(ctx context.Context) ([]byte, int, error) {
	rows, err := c.LoadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, ErrEmptyTable
	}

	data, err := encodeInviteCSV(defaultColumns(rows), rows)
	if err != nil {
		return nil, 0, err
	}
	return data, len(rows), nil
}
