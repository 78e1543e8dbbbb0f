package application

import (
	"context"
	"sync"

	"eats-pos-link/internal/domain"
	"eats-pos-link/internal/ports"
)

// fakeDeliveryClient counts upstream calls and returns canned results.
type fakeDeliveryClient struct {
	mu sync.Mutex

	exchangeCalls int
	refreshCalls  int
	listCalls     int
	activateCalls int

	exchangeResp *ports.TokenResponse
	exchangeErr  error
	refreshResp  *ports.TokenResponse
	refreshErr   error
	listResp     *ports.StorePage
	listErr      error
	activateErr  error

	// activateHook runs inside ActivateStore before it returns, with
	// the call counted. Used to simulate a confirmation racing ahead
	// of the API response.
	activateHook func()
}

func (f *fakeDeliveryClient) AuthorizeURL(state string) string {
	return "https://auth.example.test/oauth/v2/authorize?state=" + state
}

func (f *fakeDeliveryClient) ExchangeCode(ctx context.Context, code string) (*ports.TokenResponse, error) {
	f.mu.Lock()
	f.exchangeCalls++
	f.mu.Unlock()
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeResp, nil
}

func (f *fakeDeliveryClient) Refresh(ctx context.Context, refreshToken string) (*ports.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshResp, nil
}

func (f *fakeDeliveryClient) ListStores(ctx context.Context, accessToken, pageToken string, pageSize int) (*ports.StorePage, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResp, nil
}

func (f *fakeDeliveryClient) ActivateStore(ctx context.Context, accessToken string, req ports.ActivationRequest) error {
	f.mu.Lock()
	f.activateCalls++
	hook := f.activateHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.activateErr
}

func (f *fakeDeliveryClient) calls() (exchange, refresh, list, activate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangeCalls, f.refreshCalls, f.listCalls, f.activateCalls
}

// recordingPublisher captures fanned-out notifications.
type recordingPublisher struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (p *recordingPublisher) Publish(n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
}

func (p *recordingPublisher) all() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

// passVerifier accepts every signature.
type passVerifier struct{}

func (passVerifier) Verify(payload []byte, signatureHeader string) error { return nil }
