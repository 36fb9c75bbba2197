package finapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/infrastructure/config"
)

type fakeFinAPI struct {
	tokenCalls atomic.Int32
	userCalls  atomic.Int32
	userStatus int
	pages      int
}

func (f *fakeFinAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.tokenCalls.Add(1)
		if r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tok := "client-token"
		if r.PostForm.Get("grant_type") == "password" {
			tok = "user-token"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + tok + `","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		f.userCalls.Add(1)
		assert.Equal(t, "Bearer client-token", r.Header.Get("Authorization"))
		status := f.userStatus
		if status == 0 {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		if status == http.StatusUnprocessableEntity {
			_, _ = w.Write([]byte(`{"errors":[{"message":"user exists","code":"ENTITY_EXISTS"}]}`))
		}
	})
	mux.HandleFunc("/api/webForms/bankConnectionImport", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":77,"url":"https://webform.example/77","status":"NOT_YET_OPENED"}`))
	})
	mux.HandleFunc("/api/webForms/77", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":77,"url":"https://webform.example/77","status":"COMPLETED","payload":{"bankConnectionId":5}}`))
	})
	mux.HandleFunc("/api/webForms/404", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/v2/bankConnections/5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"bank":{"name":"Sparkasse KölnBonn","bic":"COLSDE33XXX"}}`))
	})
	mux.HandleFunc("/api/v2/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("bankConnectionIds"))
		_, _ = w.Write([]byte(`{"accounts":[{"id":11,"bankConnectionId":5,"accountName":"Girokonto","iban":"DE89370400440532013000","accountCurrency":"EUR","balance":1523.45}]}`))
	})
	mux.HandleFunc("/api/v2/transactions", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "11", q.Get("accountIds"))
		assert.Equal(t, "2026-01-01", q.Get("minBankBookingDate"))
		assert.Equal(t, "500", q.Get("perPage"))
		if q.Get("page") == "1" {
			_, _ = w.Write([]byte(`{"transactions":[{"id":1,"accountId":11,"bankBookingDate":"2026-01-02","amount":-12.5,"purpose":"Kontofuehrung","counterpartName":"Sparkasse"}],"paging":{"page":1,"perPage":500,"pageCount":2,"totalCount":2}}`))
			return
		}
		_, _ = w.Write([]byte(`{"transactions":[{"id":2,"accountId":11,"bankBookingDate":"2026-01-05","valueDate":"2026-01-06","amount":1190,"purpose":"RE-2026-0001","counterpartName":"Muster GmbH","counterpartIban":"DE02120300000000202051"}],"paging":{"page":2,"perPage":500,"pageCount":2,"totalCount":2}}`))
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeFinAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(config.FinAPIConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	}, nil, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.FinAPIConfig{BaseURL: "https://sandbox.finapi.io"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_CreateWebForm(t *testing.T) {
	t.Run("creates the user and returns the form", func(t *testing.T) {
		fake := &fakeFinAPI{}
		c := newTestClient(t, fake)

		form, err := c.CreateWebForm(context.Background(), uuid.New(), "")
		require.NoError(t, err)
		assert.Equal(t, int64(77), form.ID)
		assert.Equal(t, "https://webform.example/77", form.URL)
		assert.Equal(t, WebFormNotYetOpened, form.Status)
		assert.Equal(t, int32(1), fake.userCalls.Load())
	})

	t.Run("existing user is not an error", func(t *testing.T) {
		fake := &fakeFinAPI{userStatus: http.StatusUnprocessableEntity}
		c := newTestClient(t, fake)

		_, err := c.CreateWebForm(context.Background(), uuid.New(), "Sparkasse")
		require.NoError(t, err)
	})

	t.Run("user creation failure is returned", func(t *testing.T) {
		fake := &fakeFinAPI{userStatus: http.StatusInternalServerError}
		c := newTestClient(t, fake)

		_, err := c.CreateWebForm(context.Background(), uuid.New(), "")
		assert.ErrorIs(t, err, ErrRequestFailed)
	})
}

func TestClient_TokensAreCached(t *testing.T) {
	fake := &fakeFinAPI{}
	c := newTestClient(t, fake)
	tenant := uuid.New()

	_, err := c.GetWebForm(context.Background(), tenant, 77)
	require.NoError(t, err)
	_, err = c.GetWebForm(context.Background(), tenant, 77)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = c.GetWebForm(context.Background(), tenant, 77)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.tokenCalls.Load())
}

func TestClient_GetWebForm(t *testing.T) {
	c := newTestClient(t, &fakeFinAPI{})

	form, err := c.GetWebForm(context.Background(), uuid.New(), 77)
	require.NoError(t, err)
	assert.Equal(t, WebFormCompleted, form.Status)
	assert.Equal(t, int64(5), form.Payload.BankConnectionID)

	_, err = c.GetWebForm(context.Background(), uuid.New(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ListAccounts(t *testing.T) {
	c := newTestClient(t, &fakeFinAPI{})

	accounts, err := c.ListAccounts(context.Background(), uuid.New(), 5)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(11), accounts[0].ID)
	assert.Equal(t, "DE89370400440532013000", accounts[0].IBAN)
	assert.Equal(t, "Sparkasse KölnBonn", accounts[0].BankName)
	assert.Equal(t, "COLSDE33XXX", accounts[0].BIC)
	assert.True(t, decimal.RequireFromString("1523.45").Equal(accounts[0].Balance))
}

func TestClient_ListTransactions(t *testing.T) {
	c := newTestClient(t, &fakeFinAPI{})
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	txs, err := c.ListTransactions(context.Background(), uuid.New(), 11, since)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.True(t, decimal.RequireFromString("-12.5").Equal(txs[0].Amount))
	booked, err := txs[0].BookingDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), booked)
	value, err := txs[0].ValueDateTime()
	require.NoError(t, err)
	assert.Equal(t, booked, value)

	assert.Equal(t, "Muster GmbH", txs[1].CounterpartName)
	value, err = txs[1].ValueDateTime()
	require.NoError(t, err)
	assert.Equal(t, 6, value.Day())
}

func TestClient_InvalidCredentials(t *testing.T) {
	fake := &fakeFinAPI{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c, err := NewClient(config.FinAPIConfig{BaseURL: srv.URL, ClientID: "client", ClientSecret: "wrong"}, nil)
	require.NoError(t, err)

	_, err = c.GetWebForm(context.Background(), uuid.New(), 77)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserPasswordIsStable(t *testing.T) {
	c := &Client{clientSecret: "secret"}
	tenant := uuid.New()
	assert.Equal(t, c.userPassword(tenant), c.userPassword(tenant))
	assert.NotEqual(t, c.userPassword(tenant), c.userPassword(uuid.New()))
	assert.Equal(t, "kontor-"+tenant.String(), UserID(tenant))
}
