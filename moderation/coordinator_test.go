package moderation_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/moderation"
)

const token = "32TBiqYUj3+Dcuc7r2qK5Y4otiU="

type fakeMessenger struct {
	mu        sync.Mutex
	deleted   []string
	notices   []string
	retracted []string
	deleteErr error
	noticeErr error
	next      int
}

func (f *fakeMessenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) SendNotice(ctx context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noticeErr != nil {
		return "", f.noticeErr
	}
	f.next++
	id := fmt.Sprintf("notice-%d", f.next)
	f.notices = append(f.notices, channelID)
	return id, nil
}

func (f *fakeMessenger) RetractNotice(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retracted = append(f.retracted, messageID)
	return nil
}

func (f *fakeMessenger) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted), len(f.notices), len(f.retracted)
}

type fakeReporter struct {
	reports []moderation.Report
	err     error
}

func (f *fakeReporter) ReportViolation(ctx context.Context, r moderation.Report) error {
	f.reports = append(f.reports, r)
	return f.err
}

func newLedger(t *testing.T) databases.ViolationDatabase {
	t.Helper()
	ledger := databases.NewViolationDatabase(filepath.Join(t.TempDir(), "moderation-log.csv"))
	require.NoError(t, ledger.Load(context.Background()))
	return ledger
}

func defaultOptions() moderation.Options {
	return moderation.Options{DeleteMessages: true, Notify: true, NoticeTTL: time.Hour}
}

func message(id, channel, content string) moderation.Message {
	return moderation.Message{ID: id, ChannelID: channel, AuthorID: "u1", AuthorName: "alice", Content: content}
}

func TestCoordinator_SecondDetectionSuppressesNotice(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	reporter := &fakeReporter{}
	c := moderation.NewCoordinator(nil, ledger, messenger, reporter, defaultOptions())

	v, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)
	assert.True(t, v.Flagged())
	assert.True(t, v.Deleted)
	assert.True(t, v.Notified)
	assert.Equal(t, 1, v.Violations)

	v, err = c.HandleMessage(context.Background(), message("m2", "c1", "again "+token))
	require.NoError(t, err)
	assert.True(t, v.Deleted)
	assert.False(t, v.Notified)
	assert.Equal(t, 2, v.Violations)

	deleted, notices, _ := messenger.counts()
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, notices)
	assert.Equal(t, 2, ledger.Count("u1"))
	assert.Equal(t, 1, c.PendingNotices())

	require.Len(t, reporter.reports, 2)
	assert.Equal(t, 2, reporter.reports[1].Violations)
	assert.False(t, reporter.reports[1].Notified)

	// another channel gets its own notice
	v, err = c.HandleMessage(context.Background(), message("m3", "c2", token))
	require.NoError(t, err)
	assert.True(t, v.Notified)
}

func TestCoordinator_NoticeRetractedAfterTTL(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	opts := defaultOptions()
	opts.NoticeTTL = 20 * time.Millisecond
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, opts)

	_, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, _, retracted := messenger.counts()
		return retracted == 1 && c.PendingNotices() == 0
	}, time.Second, 5*time.Millisecond)

	v, err := c.HandleMessage(context.Background(), message("m2", "c1", token))
	require.NoError(t, err)
	assert.True(t, v.Notified)
}

func TestCoordinator_LedgerWrittenWhenActionsFail(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{deleteErr: errors.New("unknown message"), noticeErr: errors.New("missing access")}
	reporter := &fakeReporter{err: errors.New("log channel gone")}
	c := moderation.NewCoordinator(nil, ledger, messenger, reporter, defaultOptions())

	v, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)
	assert.False(t, v.Deleted)
	assert.False(t, v.Notified)
	assert.Equal(t, 1, v.Violations)
	assert.Equal(t, 0, c.PendingNotices())
	assert.Len(t, reporter.reports, 1)
}

func TestCoordinator_Skips(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	opts := defaultOptions()
	opts.ExemptChannels = []string{"codes"}
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, opts)

	tests := []struct {
		name string
		msg  moderation.Message
	}{
		{"administrator", moderation.Message{ID: "1", ChannelID: "c1", AuthorID: "a", IsAdmin: true, Content: token}},
		{"bot", moderation.Message{ID: "2", ChannelID: "c1", AuthorID: "b", IsBot: true, Content: token}},
		{"exempt channel", message("3", "codes", token)},
		{"clean message", message("4", "c1", "hello there, how is everyone today?")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.HandleMessage(context.Background(), tt.msg)
			require.NoError(t, err)
			assert.False(t, v.Flagged())
		})
	}

	deleted, notices, _ := messenger.counts()
	assert.Zero(t, deleted)
	assert.Zero(t, notices)
	assert.Zero(t, ledger.Users())
}

func TestCoordinator_ToggledOff(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, moderation.Options{})

	v, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)
	assert.True(t, v.Flagged())
	assert.False(t, v.Deleted)
	assert.False(t, v.Notified)
	assert.Equal(t, 1, ledger.Count("u1"))

	deleted, notices, _ := messenger.counts()
	assert.Zero(t, deleted)
	assert.Zero(t, notices)
}

func TestCoordinator_NoticeDeletedFreesSlot(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, defaultOptions())

	_, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)

	c.NoticeDeleted("c1", "someone-else")
	assert.Equal(t, 1, c.PendingNotices())

	c.NoticeDeleted("c1", "notice-1")
	assert.Equal(t, 0, c.PendingNotices())

	v, err := c.HandleMessage(context.Background(), message("m2", "c1", token))
	require.NoError(t, err)
	assert.True(t, v.Notified)
}

func TestCoordinator_CloseRetractsPending(t *testing.T) {
	ledger := newLedger(t)
	messenger := &fakeMessenger{}
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, defaultOptions())

	_, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
	require.NoError(t, err)

	c.Close(context.Background())
	_, _, retracted := messenger.counts()
	assert.Equal(t, 1, retracted)
	assert.Equal(t, 0, c.PendingNotices())
}

// slowMessenger holds SendNotice until release is closed
type slowMessenger struct {
	*fakeMessenger
	sending chan struct{}
	release chan struct{}
}

func (s *slowMessenger) SendNotice(ctx context.Context, channelID string) (string, error) {
	close(s.sending)
	<-s.release
	return s.fakeMessenger.SendNotice(ctx, channelID)
}

func TestCoordinator_CloseRetractsNoticeStillSending(t *testing.T) {
	ledger := newLedger(t)
	messenger := &slowMessenger{
		fakeMessenger: &fakeMessenger{},
		sending:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	c := moderation.NewCoordinator(nil, ledger, messenger, nil, defaultOptions())

	done := make(chan moderation.Verdict)
	go func() {
		v, err := c.HandleMessage(context.Background(), message("m1", "c1", token))
		assert.NoError(t, err)
		done <- v
	}()

	<-messenger.sending
	c.Close(context.Background())
	_, _, retracted := messenger.counts()
	assert.Zero(t, retracted)

	close(messenger.release)
	v := <-done
	assert.True(t, v.Notified)

	messenger.mu.Lock()
	assert.Equal(t, []string{"notice-1"}, messenger.retracted)
	messenger.mu.Unlock()
	assert.Equal(t, 0, c.PendingNotices())
}
