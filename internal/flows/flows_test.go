package flows

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"cambiobot/internal/domain"
	"cambiobot/internal/proof"
	"cambiobot/internal/session"
	"cambiobot/internal/storage"
)

type sent struct {
	userID int64
	text   string
	kb     [][]string
}

type fakeSender struct {
	msgs []sent
}

func (s *fakeSender) Send(_ context.Context, userID int64, text string, kb [][]string) error {
	s.msgs = append(s.msgs, sent{userID: userID, text: text, kb: kb})
	return nil
}

func (s *fakeSender) last(t *testing.T) sent {
	t.Helper()
	if len(s.msgs) == 0 {
		t.Fatal("no messages sent")
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *fakeSender) sawText(substr string) bool {
	for _, m := range s.msgs {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f fakeRates) Rate(context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

type fakeResolver struct {
	result proof.Result
	err    error
	paths  []string
}

func (f *fakeResolver) Resolve(_ context.Context, path string) (proof.Result, error) {
	f.paths = append(f.paths, path)
	return f.result, f.err
}

type fakeDownloader struct {
	dir      string
	err      error
	lastPath string
}

func (f *fakeDownloader) Download(_ context.Context, photoID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, photoID+".jpg")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		return "", err
	}
	f.lastPath = path
	return path, nil
}

type fakeUsers struct {
	exists    bool
	created   []domain.User
	createErr error
}

func (f *fakeUsers) Exists(context.Context, int64) (bool, error) {
	return f.exists, nil
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, *u)
	return u, nil
}

type fakeMethods struct {
	list          []domain.PaymentMethod
	created       []domain.PaymentMethod
	nicknameTaken bool
	createErr     error
}

func (f *fakeMethods) Create(_ context.Context, m *domain.PaymentMethod) (*domain.PaymentMethod, error) {
	if f.nicknameTaken {
		f.nicknameTaken = false
		return nil, storage.ErrNicknameTaken
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, *m)
	return m, nil
}

func (f *fakeMethods) ByUser(_ context.Context, userID int64) ([]domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	for _, m := range f.list {
		if m.UserTelegramID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMethods) ByUserAndTypes(_ context.Context, userID int64, types []domain.MethodType) ([]domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	for _, m := range f.list {
		if m.UserTelegramID != userID {
			continue
		}
		for _, t := range types {
			if m.Type == t {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

type fakeTx struct {
	created []domain.Transaction
	err     error
}

func (f *fakeTx) Create(_ context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	stored := *t
	stored.ID = int64(len(f.created) + 1)
	f.created = append(f.created, stored)
	return &stored, nil
}

func mustSession(t *testing.T, store session.Store, userID int64) *session.Session {
	t.Helper()
	s, err := store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return s
}
