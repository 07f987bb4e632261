// Package claims hands out invite codes, one per user, under the global quota.
package claims

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/models"
)

// Outcome is the terminal state of one claim attempt
type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeExistingCode
	OutcomeNewCode
	OutcomeDeniedChannel
	OutcomeDeniedIneligible
	OutcomeDeniedBusy
	OutcomeDeniedQuota
	OutcomeDeniedNoRows
)

var outcomeNames = map[Outcome]string{
	OutcomeError:            "error",
	OutcomeExistingCode:     "existing-code-returned",
	OutcomeNewCode:          "new-code-assigned",
	OutcomeDeniedChannel:    "denied-channel",
	OutcomeDeniedIneligible: "denied-ineligible",
	OutcomeDeniedBusy:       "denied-busy",
	OutcomeDeniedQuota:      "denied-quota-exhausted",
	OutcomeDeniedNoRows:     "denied-no-rows-available",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Request is one user's attempt to claim a code
type Request struct {
	UserID    string
	ChannelID string
	IsAdmin   bool
	RoleIDs   []string
}

// Result carries the outcome and, for the two success outcomes, the code.
// Err is only set when Outcome is OutcomeError.
type Result struct {
	ClaimID string
	Outcome Outcome
	Code    string
	Err     error
}

// Coordinator serializes every claim in the process through one gate. A claim
// that finds the gate held is turned away rather than queued.
type Coordinator struct {
	invites     databases.InviteCodeDatabase
	quota       databases.QuotaDatabase
	eligibility databases.EligibilityDatabase
	inChannel   func(channelID string) bool

	gate sync.Mutex
}

// NewCoordinator builds a coordinator. inChannel reports whether claims are
// accepted in a channel; nil accepts every channel.
func NewCoordinator(invites databases.InviteCodeDatabase, quota databases.QuotaDatabase, eligibility databases.EligibilityDatabase, inChannel func(channelID string) bool) *Coordinator {
	return &Coordinator{
		invites:     invites,
		quota:       quota,
		eligibility: eligibility,
		inChannel:   inChannel,
	}
}

// Claim runs one request to a terminal outcome. Policy denials are outcomes,
// not errors.
func (c *Coordinator) Claim(ctx context.Context, req Request) Result {
	claimID := uuid.NewString()
	log := zap.S().With("claimId", claimID, "userId", req.UserID, "channelId", req.ChannelID)

	if c.inChannel != nil && !c.inChannel(req.ChannelID) {
		log.Warnw("claim blocked in restricted channel")
		return Result{ClaimID: claimID, Outcome: OutcomeDeniedChannel}
	}

	if !c.eligibility.IsEligible(req.IsAdmin, req.RoleIDs) {
		log.Warnw("claim denied, user is not eligible", "roles", len(req.RoleIDs))
		return Result{ClaimID: claimID, Outcome: OutcomeDeniedIneligible}
	}

	if !c.gate.TryLock() {
		log.Infow("claim rejected, another claim is in flight")
		return Result{ClaimID: claimID, Outcome: OutcomeDeniedBusy}
	}
	defer c.gate.Unlock()

	log.Infow("claim processing started")
	res := c.allocate(ctx, log, req.UserID)
	res.ClaimID = claimID
	if res.Outcome == OutcomeError {
		log.Errorw("claim failed", "error", res.Err)
	} else {
		log.Infow("claim processing completed", "outcome", res.Outcome.String())
	}
	return res
}

// allocate must be called with the gate held
func (c *Coordinator) allocate(ctx context.Context, log *zap.SugaredLogger, userID string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeError, Err: fmt.Errorf("claim panicked: %v", r)}
		}
	}()

	rows, err := c.invites.LoadAll(ctx)
	if err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("loading invite table: %w", err)}
	}
	total := len(rows)
	claimed := models.CountAssigned(rows)
	log.Debugw("invite table loaded", "total", total, "claimed", claimed)

	if row := models.FindByUser(rows, userID); row != nil {
		log.Infow("returning user, existing code provided", "position", row.Position)
		return Result{Outcome: OutcomeExistingCode, Code: row.Code}
	}

	// a full table with quota to spare is a data shortage, reported below
	state := c.quota.State()
	if state.LimitReached(claimed) {
		log.Warnw("claim limit reached", "claimed", claimed, "claimLimit", state.Limit)
		return Result{Outcome: OutcomeDeniedQuota}
	}

	row := models.FindFirstUnassigned(rows)
	if row == nil {
		log.Warnw("no unassigned invite rows left", "claimed", claimed, "total", total)
		return Result{Outcome: OutcomeDeniedNoRows}
	}

	row.AssignedUser = userID
	if err := c.invites.SaveAll(ctx, rows); err != nil {
		return Result{Outcome: OutcomeError, Err: fmt.Errorf("saving invite table: %w", err)}
	}
	if err := c.quota.TouchStore(ctx, userID); err != nil {
		// the assignment is durable, so the user keeps the code
		log.Warnw("could not record invite table modification", "error", err)
	}

	log.Infow("new code assigned", "position", row.Position)
	return Result{Outcome: OutcomeNewCode, Code: row.Code}
}
