// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 drgz Accounts Contributors

//go:build integration

package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/drgz/accounts/internal/auth"
	"github.com/drgz/accounts/internal/auth/postgres"
	"github.com/drgz/accounts/internal/notify"
	"github.com/drgz/accounts/internal/store"
	"github.com/drgz/accounts/internal/web"
)

// outbox records delivered mail.
type outbox struct {
	mu     sync.Mutex
	emails []notify.Email
}

func (o *outbox) Send(_ context.Context, email notify.Email) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.emails = append(o.emails, email)
	return nil
}

func (o *outbox) last() notify.Email {
	o.mu.Lock()
	defer o.mu.Unlock()
	Expect(o.emails).NotTo(BeEmpty())
	return o.emails[len(o.emails)-1]
}

var (
	verifyLink = regexp.MustCompile(`/verify/([A-Za-z0-9._-]+)`)
	resetLink  = regexp.MustCompile(`/reset-password/([A-Za-z0-9._-]+)`)
)

var (
	pool       *pgxpool.Pool
	container  *tcpostgres.PostgresContainer
	dispatcher *notify.Dispatcher
	mail       *outbox
	api        *httptest.Server
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("accounts_test"),
		tcpostgres.WithUsername("accounts"),
		tcpostgres.WithPassword("accounts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := notify.NewRenderer()
	Expect(err).NotTo(HaveOccurred())
	mail = &outbox{}
	dispatcher = notify.NewDispatcher(renderer, mail, notify.WithLogger(logger))

	codec, err := auth.NewTokenCodec([]byte("integration-secret"))
	Expect(err).NotTo(HaveOccurred())
	svc, err := auth.NewAccountService(postgres.NewAccountRepository(pool), auth.NewBcryptHasher(), codec, dispatcher,
		auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	server, err := web.NewServer("127.0.0.1:0", svc, web.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())
	api = httptest.NewServer(server.Handler())
})

var _ = AfterSuite(func() {
	if api != nil {
		api.Close()
	}
	if dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = dispatcher.Wait(ctx)
	}
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

type apiResponse struct {
	status int
	body   map[string]any
	raw    []byte
}

func call(method, path string, body any, token string) apiResponse {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, api.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := api.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	out := apiResponse{status: resp.StatusCode, raw: raw}
	_ = json.Unmarshal(raw, &out.body)
	return out
}

func errorKind(resp apiResponse) string {
	errBody, ok := resp.body["error"].(map[string]any)
	Expect(ok).To(BeTrue(), string(resp.raw))
	kind, _ := errBody["kind"].(string)
	return kind
}

// waitForMail flushes pending deliveries and returns the newest email.
func waitForMail() notify.Email {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	Expect(dispatcher.Wait(ctx)).To(Succeed())
	return mail.last()
}

var _ = Describe("Account lifecycle", func() {
	BeforeEach(func() {
		_, err := pool.Exec(context.Background(), `TRUNCATE users RESTART IDENTITY`)
		Expect(err).NotTo(HaveOccurred())
	})

	register := func(username, email, password string) apiResponse {
		return call(http.MethodPost, "/api/register", map[string]string{
			"username": username, "email": email, "password1": password, "password2": password,
		}, "")
	}
	login := func(email, password string) apiResponse {
		return call(http.MethodPost, "/api/login", map[string]string{"email": email, "password": password}, "")
	}

	It("registers, verifies, logs in and resolves the session", func() {
		resp := register("alice", "alice@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusCreated), string(resp.raw))
		Expect(resp.body["username"]).To(Equal("alice"))
		Expect(resp.body["email_verified"]).To(BeFalse())
		Expect(resp.raw).NotTo(ContainSubstring("password"))

		resp = login("alice@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusForbidden))
		Expect(errorKind(resp)).To(Equal("unverified"))

		email := waitForMail()
		Expect(email.To).To(Equal("alice@example.com"))
		match := verifyLink.FindStringSubmatch(email.Text)
		Expect(match).To(HaveLen(2), email.Text)

		resp = call(http.MethodPost, "/api/verify-email", map[string]string{"token": match[1]}, "")
		Expect(resp.status).To(Equal(http.StatusOK))
		Expect(resp.body["message"]).To(Equal("Email verified"))

		resp = login("alice@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.raw))
		token, _ := resp.body["token"].(string)
		Expect(token).NotTo(BeEmpty())
		Expect(resp.body["refresh_token"]).To(Equal(""))

		resp = call(http.MethodGet, "/api/me", nil, token)
		Expect(resp.status).To(Equal(http.StatusOK))
		Expect(resp.body["email"]).To(Equal("alice@example.com"))
		Expect(resp.body["email_verified"]).To(BeTrue())
	})

	It("rejects duplicate registrations", func() {
		Expect(register("bob", "bob@example.com", "secret1").status).To(Equal(http.StatusCreated))

		resp := register("bobby", "bob@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusConflict))

		resp = register("bob", "other@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusConflict))
	})

	It("resets a forgotten password", func() {
		Expect(register("carol", "carol@example.com", "secret1").status).To(Equal(http.StatusCreated))
		verify := verifyLink.FindStringSubmatch(waitForMail().Text)
		Expect(verify).To(HaveLen(2))
		Expect(call(http.MethodPost, "/api/verify-email", map[string]string{"token": verify[1]}, "").status).
			To(Equal(http.StatusOK))

		resp := call(http.MethodPost, "/api/password-reset", map[string]string{"email": "carol@example.com"}, "")
		Expect(resp.status).To(Equal(http.StatusOK))
		Expect(resp.body["message"]).To(Equal("Password reset instruction sent"))

		email := waitForMail()
		match := resetLink.FindStringSubmatch(email.Text)
		Expect(match).To(HaveLen(2), email.Text)

		resp = call(http.MethodPost, "/api/change-password", map[string]string{
			"token": match[1], "password1": "newpass9", "password2": "newpass9",
		}, "")
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.raw))

		resp = login("carol@example.com", "secret1")
		Expect(resp.status).To(Equal(http.StatusUnauthorized))
		Expect(errorKind(resp)).To(Equal("invalid_credentials"))
		Expect(login("carol@example.com", "newpass9").status).To(Equal(http.StatusOK))
	})

	It("rejects me without a session", func() {
		resp := call(http.MethodGet, "/api/me", nil, "")
		Expect(resp.status).To(Equal(http.StatusUnauthorized))
		Expect(errorKind(resp)).To(Equal("unauthenticated"))
	})

	It("lists accounts in id order", func() {
		Expect(register("dave", "dave@example.com", "secret1").status).To(Equal(http.StatusCreated))
		Expect(register("erin", "erin@example.com", "secret1").status).To(Equal(http.StatusCreated))

		resp := call(http.MethodGet, "/api/users", nil, "")
		Expect(resp.status).To(Equal(http.StatusOK))
		var accounts []map[string]any
		Expect(json.Unmarshal(resp.raw, &accounts)).To(Succeed())
		Expect(accounts).To(HaveLen(2))
		Expect(accounts[0]["username"]).To(Equal("dave"))
		Expect(accounts[1]["username"]).To(Equal("erin"))
	})
})
