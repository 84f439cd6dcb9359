package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudience struct {
	ids []int64
	err error
}

func (f fakeAudience) AllTelegramIDs(context.Context) ([]int64, error) {
	return f.ids, f.err
}

type delivery struct {
	userID  int64
	text    string
	photoID string
}

type fakeBroadcastSender struct {
	sent    []delivery
	failFor map[int64]error
}

func (f *fakeBroadcastSender) SendText(_ context.Context, userID int64, text string) error {
	if err := f.failFor[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, delivery{userID: userID, text: text})
	return nil
}

func (f *fakeBroadcastSender) SendPhoto(_ context.Context, userID int64, photoID, caption string) error {
	if err := f.failFor[userID]; err != nil {
		return err
	}
	f.sent = append(f.sent, delivery{userID: userID, text: caption, photoID: photoID})
	return nil
}

func TestBroadcastDeliversSequentially(t *testing.T) {
	sender := &fakeBroadcastSender{}
	d := NewDispatcher(fakeAudience{ids: []int64{1, 2, 3}}, sender, time.Millisecond)

	report, err := d.Broadcast(context.Background(), "hola", "")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Sent)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, sender.sent, 3)
	for i, id := range []int64{1, 2, 3} {
		assert.Equal(t, id, sender.sent[i].userID, "recipients keep registration order")
	}
}

func TestBroadcastCollectsPerRecipientFailures(t *testing.T) {
	blocked := errors.New("bot was blocked by the user")
	sender := &fakeBroadcastSender{failFor: map[int64]error{2: blocked}}
	d := NewDispatcher(fakeAudience{ids: []int64{1, 2, 3}}, sender, time.Millisecond)

	report, err := d.Broadcast(context.Background(), "hola", "")
	require.NoError(t, err, "one blocked user does not abort the run")

	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(2), report.Failures[0].UserID)
	assert.ErrorIs(t, report.Failures[0].Err, blocked)
	require.Len(t, sender.sent, 2, "remaining recipients still get the message")
}

func TestBroadcastWithPhotoUsesCaption(t *testing.T) {
	sender := &fakeBroadcastSender{}
	d := NewDispatcher(fakeAudience{ids: []int64{9}}, sender, time.Millisecond)

	report, err := d.Broadcast(context.Background(), "promo", "photo42")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "photo42", sender.sent[0].photoID)
	assert.Equal(t, "promo", sender.sent[0].text)
}

func TestBroadcastStopsOnCancelledContext(t *testing.T) {
	sender := &fakeBroadcastSender{}
	d := NewDispatcher(fakeAudience{ids: []int64{1, 2, 3}}, sender, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	report, err := d.Broadcast(ctx, "hola", "")
	assert.Error(t, err)
	assert.Less(t, report.Sent, 3, "cancellation returns a partial report")
}

func TestBroadcastAudienceFailure(t *testing.T) {
	sender := &fakeBroadcastSender{}
	d := NewDispatcher(fakeAudience{err: errors.New("db down")}, sender, time.Millisecond)

	_, err := d.Broadcast(context.Background(), "hola", "")
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
}
