package testutil

import (
	"context"
	"sync"

	"github.com/fundval/fundval-backend/internal/model"
)

// MockLiveProvider is a mock live valuation provider for testing.
// It returns predefined valuations per fund code instead of calling a
// real market data source.
type MockLiveProvider struct {
	ProviderName string
	// Valuations maps fund codes to the valuation to return.
	Valuations map[string]model.Valuation
	// Err is returned for every fetch when set.
	Err error
	// FetchCount tracks calls per fund code.
	FetchCount map[string]int

	mu sync.Mutex
}

// NewMockLiveProvider creates a mock provider with no data configured.
func NewMockLiveProvider(name string) *MockLiveProvider {
	return &MockLiveProvider{
		ProviderName: name,
		Valuations:   map[string]model.Valuation{},
		FetchCount:   map[string]int{},
	}
}

// WithValuation configures the valuation returned for one fund code.
func (m *MockLiveProvider) WithValuation(code string, v model.Valuation) *MockLiveProvider {
	m.Valuations[code] = v
	return m
}

// WithError configures the mock to fail every fetch.
func (m *MockLiveProvider) WithError(err error) *MockLiveProvider {
	m.Err = err
	return m
}

// Name returns the configured provider name.
func (m *MockLiveProvider) Name() string { return m.ProviderName }

// FetchLive returns the configured valuation for the code, or an empty
// valuation when none is configured.
func (m *MockLiveProvider) FetchLive(_ context.Context, code string) (model.Valuation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchCount[code]++
	if m.Err != nil {
		return model.Valuation{}, m.Err
	}
	return m.Valuations[code], nil
}

// Calls returns how many times the given code was fetched.
func (m *MockLiveProvider) Calls(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FetchCount[code]
}

// MockHistoryProvider is a mock NAV history provider for testing.
type MockHistoryProvider struct {
	// Histories maps fund codes to the series to return.
	Histories map[string][]model.NavPoint
	// Err is returned for every fetch when set.
	Err error
	// FetchCount tracks how many times FetchHistory was called.
	FetchCount int
}

// NewMockHistoryProvider creates a mock history provider with no data.
func NewMockHistoryProvider() *MockHistoryProvider {
	return &MockHistoryProvider{Histories: map[string][]model.NavPoint{}}
}

// WithHistory configures the series returned for one fund code.
func (m *MockHistoryProvider) WithHistory(code string, points []model.NavPoint) *MockHistoryProvider {
	m.Histories[code] = points
	return m
}

// FetchHistory returns the configured series for the code.
func (m *MockHistoryProvider) FetchHistory(_ context.Context, code string) ([]model.NavPoint, error) {
	m.FetchCount++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Histories[code], nil
}

// SentMail records one dispatched message.
type SentMail struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

// MockSender is a mock mail sender that records messages instead of
// dispatching them.
type MockSender struct {
	// Err is returned for every send when set.
	Err error
	// Sent holds all recorded messages in dispatch order.
	Sent []SentMail

	mu sync.Mutex
}

// Send records the message, or fails with the configured error.
func (m *MockSender) Send(to, subject, body string, isHTML bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: body, IsHTML: isHTML})
	return nil
}

// SentCount returns how many messages were recorded.
func (m *MockSender) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockNavLookup is a mock settlement NAV source for testing the trade
// engine without a cache or providers.
type MockNavLookup struct {
	// Navs maps "code|date" to the NAV to return.
	Navs map[string]float64
	// Err is returned for every lookup when set.
	Err error
}

// NewMockNavLookup creates a mock lookup with no data configured.
func NewMockNavLookup() *MockNavLookup {
	return &MockNavLookup{Navs: map[string]float64{}}
}

// WithNav configures the NAV returned for one (code, date) pair.
func (m *MockNavLookup) WithNav(code, date string, nav float64) *MockNavLookup {
	m.Navs[code+"|"+date] = nav
	return m
}

// GetHistoricalNav returns the configured NAV, reporting false when the
// (code, date) pair is not configured, mirroring an unpublished NAV.
func (m *MockNavLookup) GetHistoricalNav(_ context.Context, code, date string) (float64, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	nav, ok := m.Navs[code+"|"+date]
	return nav, ok, nil
}
