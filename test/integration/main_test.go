//go:build integration
// +build integration

package integration

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/app"
	"github.com/nordveil/site-api/internal/config"
	"github.com/nordveil/site-api/internal/models"
)

const rejectedChallengeToken = "tok-rejected-by-stub"

var (
	testServerURL string
	db            *sql.DB
	mr            *miniredis.Miniredis
	mailbox       *smtpRecorder
	crmInbox      *crmRecorder
)

func TestMain(m *testing.M) {
	fmt.Println("Starting integration tests...")
	gin.SetMode(gin.TestMode)

	tmpDir, err := os.MkdirTemp("", "site-api-integration")
	if err != nil {
		log.Panicf("failed to create temp dir: %v", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Println("failed to remove temp dir:", err)
		}
	}()

	mr, err = miniredis.Run()
	if err != nil {
		log.Panicf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	mailbox = newSMTPRecorder()
	smtpAddr, stopSMTP, err := mailbox.listen()
	if err != nil {
		log.Panicf("failed to start fake SMTP server: %v", err)
	}
	defer stopSMTP()
	smtpHost, smtpPort, err := net.SplitHostPort(smtpAddr)
	if err != nil {
		log.Panicf("failed to split SMTP addr: %v", err)
	}

	siteverify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		success := r.PostFormValue("response") != rejectedChallengeToken
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"success": success}); err != nil {
			log.Println("failed to encode siteverify response:", err)
		}
	}))
	defer siteverify.Close()

	crmInbox = &crmRecorder{}
	crmStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var lead models.Lead
		if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		crmInbox.record(lead)
		w.WriteHeader(http.StatusCreated)
	}))
	defer crmStub.Close()

	env := map[string]string{
		"DB_NAME":                  tmpDir + "/site.db",
		"DB_MIGRATIONS_DIR":        "../../migrations",
		"TEMPLATES_DIR":            "../../templates",
		"EMAIL_HOST":               smtpHost,
		"EMAIL_PORT":               smtpPort,
		"EMAIL_FROM":               "noreply@nordveil.test",
		"EMAIL_LEAD_INBOX":         "leads@nordveil.test",
		"TURNSTILE_SECRET":         "integration-secret",
		"TURNSTILE_URL":            siteverify.URL,
		"CRM_WEBHOOK_URL":          crmStub.URL,
		"TOKEN_SECRET":             "integration-token-secret",
		"REDIS_ADDR":               mr.Addr(),
		"RATELIMIT_CONTACT_MAX":    "100",
		"RATELIMIT_NEWSLETTER_MAX": "100",
		"RATELIMIT_CRM_MAX":        "100",
	}
	for k, v := range env {
		if err := os.Setenv(k, v); err != nil {
			log.Panicf("failed to set %s: %v", k, err)
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load config: %v", err)
	}

	application := app.New(*cfg, zap.NewNop())
	container := application.Init()

	if container.Db == nil {
		log.Panic("database is not initialized")
	}
	if err := container.Db.Ping(); err != nil {
		log.Panicf("failed to connect to the database: %v", err)
	}

	application.RegisterRoutes(container)

	testServer := httptest.NewServer(container.Router)
	defer func() {
		if err := application.Stop(container); err != nil {
			log.Panicf("failed to shutdown application: %v", err)
		}
		testServer.Close()
	}()

	testServerURL = testServer.URL
	db = container.Db

	_ = m.Run()
}

func resetState() error {
	if _, err := db.Exec("DELETE FROM subscribers"); err != nil {
		return fmt.Errorf("failed to reset subscribers table: %w", err)
	}
	mr.FlushAll()
	mailbox.reset()
	crmInbox.reset()
	return nil
}

type capturedMail struct {
	data string
}

// smtpRecorder is a fake SMTP relay just capable enough for net/smtp. It
// advertises no AUTH or STARTTLS so the client sends mail in the clear.
type smtpRecorder struct {
	mu    sync.Mutex
	mails []capturedMail
}

func newSMTPRecorder() *smtpRecorder {
	return &smtpRecorder{}
}

func (s *smtpRecorder) record(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = append(s.mails, capturedMail{data: data})
}

func (s *smtpRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mails)
}

func (s *smtpRecorder) all() []capturedMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capturedMail, len(s.mails))
	copy(out, s.mails)
	return out
}

func (s *smtpRecorder) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = nil
}

func (s *smtpRecorder) listen() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return ln.Addr().String(), func() {
		if err := ln.Close(); err != nil {
			log.Println("failed to close SMTP listener:", err)
		}
	}, nil
}

func (s *smtpRecorder) serve(conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			log.Println("failed to close SMTP conn:", err)
		}
	}()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	say := func(line string) {
		_, _ = w.WriteString(line + "\r\n")
		_ = w.Flush()
	}

	say("220 fake.nordveil.test ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			say("250 fake.nordveil.test")
		case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"), strings.HasPrefix(cmd, "RSET"):
			say("250 OK")
		case strings.HasPrefix(cmd, "DATA"):
			say("354 End data with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				dataLine, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if strings.TrimRight(dataLine, "\r\n") == "." {
					break
				}
				data.WriteString(dataLine)
			}
			s.record(data.String())
			say("250 OK")
		case strings.HasPrefix(cmd, "QUIT"):
			say("221 Bye")
			return
		default:
			say("250 OK")
		}
	}
}

type crmRecorder struct {
	mu    sync.Mutex
	leads []models.Lead
}

func (c *crmRecorder) record(lead models.Lead) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = append(c.leads, lead)
}

func (c *crmRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.leads)
}

func (c *crmRecorder) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leads = nil
}
