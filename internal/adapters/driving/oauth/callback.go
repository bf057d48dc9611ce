// Package oauth runs the installed-app authorization code flow for Google
// through a loopback redirect server.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Loopback ports tried for the redirect server.
const (
	PortRangeStart = 8085
	PortRangeEnd   = 8185
)

// CallbackServer receives the authorization redirect on 127.0.0.1.
type CallbackServer struct {
	mu            sync.Mutex
	port          int
	expectedState string
	codeCh        chan string
	errCh         chan error
	server        *http.Server
	listener      net.Listener
}

// NewCallbackServer creates a server expecting state. Port 0 picks a free port.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		codeCh:        make(chan string, 1),
		errCh:         make(chan error, 1),
	}
}

// Start listens and serves /callback in the background.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := chi.NewRouter()
	r.Get("/callback", s.handleCallback)

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	}

	s.server = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()
	return nil
}

func (s *CallbackServer) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html")

	if e := q.Get("error"); e != "" {
		s.fail(fmt.Errorf("authorization denied: %s %s", e, q.Get("error_description")))
		fmt.Fprint(w, page("Authorization failed", html.EscapeString(q.Get("error_description"))))
		return
	}
	if q.Get("state") != s.expectedState {
		s.fail(errors.New("authorization callback state mismatch"))
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, page("Authorization failed", "Invalid state parameter."))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(errors.New("authorization callback without code"))
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, page("Authorization failed", "No authorization code received."))
		return
	}

	select {
	case s.codeCh <- code:
	default:
	}
	fmt.Fprint(w, page("Authorization successful", "You can close this window and return to adreports."))
}

// WaitForCode blocks until a code or an error arrives, or ctx is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeCh:
		return code, nil
	case err := <-s.errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down. Stopping a server that never started is a no-op.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Port returns the port the server listens on.
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectURI returns the redirect URI registered for this server.
func (s *CallbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", s.port)
}

func page(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>adreports - %[1]s</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
<h1>%[1]s</h1>
<p>%[2]s</p>
</body>
</html>`, html.EscapeString(title), message)
}

// OpenBrowser opens the default browser at url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}

// FindAvailablePort returns the first free port in [startPort, endPort].
func FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}

// Flow runs the authorization code flow with PKCE.
type Flow struct {
	Config *oauth2.Config

	// Open shows the authorization URL to the user. Defaults to OpenBrowser.
	Open func(url string) error

	// Port is the redirect port. Zero picks one from the loopback range.
	Port int
}

// Token sends the user through consent and exchanges the returned code.
// An offline refresh token is always requested.
func (f *Flow) Token(ctx context.Context) (*oauth2.Token, error) {
	port := f.Port
	if port == 0 {
		p, err := FindAvailablePort(PortRangeStart, PortRangeEnd)
		if err != nil {
			return nil, err
		}
		port = p
	}

	state := uuid.NewString()
	server := NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer server.Stop()

	cfg := *f.Config
	cfg.RedirectURL = server.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier))

	open := f.Open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}
