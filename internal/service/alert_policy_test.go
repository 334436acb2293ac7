package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/models"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	args := m.Called(text)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestPolicy(n *mockNotifier, clock *fakeClock) *AlertPolicy {
	return NewAlertPolicy(models.DefaultAlertConfig, n, logger.Discard(),
		WithClock(clock.Now),
		WithLocation(time.UTC),
	)
}

func TestEvaluateBelowThreshold(t *testing.T) {
	n := new(mockNotifier)
	p := newTestPolicy(n, &fakeClock{now: fixedNow})

	assert.False(t, p.Evaluate(context.Background(), 84, "river-1", fixedNow.Unix()))
	assert.False(t, p.CooldownActive())
	n.AssertNotCalled(t, "Send", mock.Anything)
}

func TestEvaluateAtThresholdSends(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything).Return(nil).Once()
	p := newTestPolicy(n, &fakeClock{now: fixedNow})

	assert.True(t, p.Evaluate(context.Background(), 85, "river-1", fixedNow.Unix()))
	assert.True(t, p.CooldownActive())
	n.AssertNumberOfCalls(t, "Send", 1)
}

func TestEvaluateCooldownSuppressesUntilExpired(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything).Return(nil)
	clock := &fakeClock{now: fixedNow}
	p := newTestPolicy(n, clock)
	ctx := context.Background()

	require.True(t, p.Evaluate(ctx, 90, "river-1", fixedNow.Unix()))

	clock.Advance(9*time.Minute + 59*time.Second)
	assert.False(t, p.Evaluate(ctx, 99, "river-1", fixedNow.Unix()))

	clock.Advance(time.Second)
	assert.True(t, p.Evaluate(ctx, 99, "river-1", fixedNow.Unix()))

	n.AssertNumberOfCalls(t, "Send", 2)
}

func TestEvaluateFailedDeliveryKeepsCooldown(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything).Return(errors.New("unreachable")).Once()
	clock := &fakeClock{now: fixedNow}
	p := newTestPolicy(n, clock)
	ctx := context.Background()

	assert.False(t, p.Evaluate(ctx, 95, "river-1", fixedNow.Unix()))
	assert.True(t, p.CooldownActive())

	clock.Advance(time.Minute)
	assert.False(t, p.Evaluate(ctx, 95, "river-1", fixedNow.Unix()))
	n.AssertNumberOfCalls(t, "Send", 1)

	last, ok := p.LastAlertAt()
	assert.True(t, ok)
	assert.Equal(t, fixedNow, last)
}

func TestEvaluateBelowThresholdDuringCooldownLeavesState(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything).Return(nil)
	clock := &fakeClock{now: fixedNow}
	p := newTestPolicy(n, clock)

	require.True(t, p.Evaluate(context.Background(), 90, "a", 0))
	clock.Advance(time.Minute)
	require.False(t, p.Evaluate(context.Background(), 10, "a", 0))

	last, _ := p.LastAlertAt()
	assert.Equal(t, fixedNow, last)
}

// slowNotifier counts sends and blocks until released.
type slowNotifier struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowNotifier) Send(ctx context.Context, text string) error {
	s.calls.Add(1)
	<-s.release
	return nil
}

func TestEvaluateConcurrentSendsOnce(t *testing.T) {
	n := &slowNotifier{release: make(chan struct{})}
	p := NewAlertPolicy(models.DefaultAlertConfig, n, logger.Discard(), WithLocation(time.UTC))

	const callers = 50
	var wg sync.WaitGroup
	var sent atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Evaluate(context.Background(), 99, "river-1", fixedNow.Unix()) {
				sent.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return n.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(n.release)
	wg.Wait()

	assert.Equal(t, int32(1), n.calls.Load())
	assert.Equal(t, int32(1), sent.Load())
}

func TestEvaluateRecordsHistoryAndNotifiesListeners(t *testing.T) {
	n := new(mockNotifier)
	n.On("Send", mock.Anything).Return(nil)
	history := &memoryAlerts{}
	p := NewAlertPolicy(models.DefaultAlertConfig, n, logger.Discard(),
		WithClock((&fakeClock{now: fixedNow}).Now),
		WithHistory(history),
	)

	var got []models.AlertEvent
	p.Subscribe(func(e models.AlertEvent) { got = append(got, e) })

	require.True(t, p.Evaluate(context.Background(), 97, "river-1", 1234))

	require.Len(t, history.events, 1)
	assert.Equal(t, models.SeverityCritical, history.events[0].Severity)
	assert.True(t, history.events[0].Delivered)
	assert.Equal(t, int64(1234), history.events[0].ReadingTS)
	require.Len(t, got, 1)
	assert.Equal(t, "river-1", got[0].DeviceID)
}

func TestFormatAlertTiers(t *testing.T) {
	p := NewAlertPolicy(models.DefaultAlertConfig, new(mockNotifier), logger.Discard(), WithLocation(time.UTC))

	warning := p.FormatAlert(85, "river-1", fixedNow.Unix())
	assert.Contains(t, warning, "WARNING")
	assert.Contains(t, warning, "85%")
	assert.Contains(t, warning, "river-1")
	assert.Contains(t, warning, "2024-05-01 12:00:00")
	assert.NotContains(t, warning, "CRITICAL")

	critical := p.FormatAlert(95, "river-1", fixedNow.Unix())
	assert.Contains(t, critical, "CRITICAL")
	assert.Contains(t, critical, "HIGH DANGER")
}

type memoryAlerts struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (m *memoryAlerts) Create(ctx context.Context, event *models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, *event)
	return nil
}

func (m *memoryAlerts) GetHistory(ctx context.Context, limit int) ([]models.AlertEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AlertEvent(nil), m.events...), nil
}
