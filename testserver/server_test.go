package testserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/aura-studio/testserver/echo"
	"github.com/aura-studio/testserver/testserver"
)

func newEchoServer(t *testing.T, opts ...testserver.Option) *testserver.Server {
	t.Helper()

	srv := testserver.New(echo.Handler(), opts...)
	t.Cleanup(func() {
		if err := srv.Close(context.Background()); err != nil && !errors.Is(err, testserver.ErrNotRunning) {
			t.Errorf("Close() error: %v", err)
		}
	})
	return srv
}

func TestNewPanicsOnNilHandler(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(nil) did not panic")
		}
	}()

	testserver.New(nil)
}

func TestNewIsUnbound(t *testing.T) {
	srv := newEchoServer(t)

	if addr := srv.Addr(); addr != nil {
		t.Errorf("Addr() = %v, want nil", addr)
	}
	if got := srv.Address(); got != "" {
		t.Errorf("Address() = %q, want empty", got)
	}
}

func TestListenOnRandomPort(t *testing.T) {
	srv := newEchoServer(t)

	if err := srv.Listen(context.Background()); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}

	addr, ok := srv.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("Addr() = %T, want *net.TCPAddr", srv.Addr())
	}
	if addr.Port <= 0 || addr.Port > 65535 {
		t.Errorf("Port = %d, want ephemeral port", addr.Port)
	}
	if !addr.IP.IsLoopback() {
		t.Errorf("IP = %v, want loopback", addr.IP)
	}
}

func TestListenTwiceKeepsPort(t *testing.T) {
	srv := newEchoServer(t)
	ctx := context.Background()

	if err := srv.Listen(ctx); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	first := srv.Address()

	if err := srv.Listen(ctx); err != nil {
		t.Fatalf("second Listen() error: %v", err)
	}
	if got := srv.Address(); got != first {
		t.Errorf("Address() = %q after second Listen, want %q", got, first)
	}
}

func TestCloseNotRunning(t *testing.T) {
	srv := testserver.New(echo.Handler())

	err := srv.Close(context.Background())
	if !errors.Is(err, testserver.ErrNotRunning) {
		t.Fatalf("Close() error = %v, want ErrNotRunning", err)
	}
	if !strings.Contains(err.Error(), "not running") {
		t.Errorf("Close() error = %q, want it to mention not running", err)
	}
}

func TestCloseUnbindsAndRebinds(t *testing.T) {
	srv := newEchoServer(t)
	ctx := context.Background()

	if err := srv.Listen(ctx); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	if err := srv.Close(ctx); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if addr := srv.Addr(); addr != nil {
		t.Errorf("Addr() after Close = %v, want nil", addr)
	}
	if err := srv.Close(ctx); !errors.Is(err, testserver.ErrNotRunning) {
		t.Errorf("second Close() error = %v, want ErrNotRunning", err)
	}

	res, err := srv.Get(ctx, "/again")
	if err != nil {
		t.Fatalf("Get() after rebind error: %v", err)
	}
	body, err := testserver.ReadText(res)
	if err != nil {
		t.Fatalf("ReadText() error: %v", err)
	}
	if body != "GET /again works!" {
		t.Errorf("Body = %q, want %q", body, "GET /again works!")
	}
}

func TestAddress(t *testing.T) {
	srv := newEchoServer(t)

	if err := srv.Listen(context.Background()); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}

	m := regexp.MustCompile(`^http://localhost:([0-9]+)$`).FindStringSubmatch(srv.Address())
	if m == nil {
		t.Fatalf("Address() = %q, want http://localhost:<port>", srv.Address())
	}
	if port, _ := strconv.Atoi(m[1]); port != srv.Addr().(*net.TCPAddr).Port {
		t.Errorf("Address() port = %d, want %d", port, srv.Addr().(*net.TCPAddr).Port)
	}
	if got, want := srv.URL("/x"), srv.Address()+"/x"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestAddressCustomHost(t *testing.T) {
	srv := newEchoServer(t, testserver.WithHost("127.0.0.1"), testserver.WithNetwork("tcp4"))

	res, err := srv.Get(context.Background(), "/v4")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	res.Body.Close()

	if !strings.HasPrefix(srv.Address(), "http://127.0.0.1:") {
		t.Errorf("Address() = %q, want http://127.0.0.1:<port>", srv.Address())
	}
}

func TestListenBindError(t *testing.T) {
	srv := testserver.New(echo.Handler(), testserver.WithNetwork("udp"))
	ctx := context.Background()

	err := srv.Listen(ctx)
	if !errors.Is(err, testserver.ErrBind) {
		t.Fatalf("Listen() error = %v, want ErrBind", err)
	}
	if again := srv.Listen(ctx); again != err {
		t.Errorf("second Listen() error = %v, want the memoized %v", again, err)
	}
	if _, reqErr := srv.Get(ctx, "/"); reqErr != err {
		t.Errorf("Get() error = %v, want the memoized %v", reqErr, err)
	}
	if srv.Addr() != nil {
		t.Errorf("Addr() = %v after failed bind, want nil", srv.Addr())
	}

	closeErr := srv.Close(ctx)
	if !errors.Is(closeErr, testserver.ErrNotRunning) || !errors.Is(closeErr, testserver.ErrBind) {
		t.Errorf("Close() error = %v, want ErrNotRunning wrapping ErrBind", closeErr)
	}
	if closeErr := srv.Close(ctx); !errors.Is(closeErr, testserver.ErrNotRunning) {
		t.Errorf("second Close() error = %v, want ErrNotRunning", closeErr)
	}
}

func TestListenCanceledContext(t *testing.T) {
	srv := newEchoServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the wait may observe either outcome, the bind still completes
	if err := srv.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Listen() error = %v, want nil or context.Canceled", err)
	}
	if err := srv.Listen(context.Background()); err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	if srv.Addr() == nil {
		t.Error("Addr() = nil after Listen")
	}
}

func TestCloseReleasesPort(t *testing.T) {
	srv := newEchoServer(t)
	ctx := context.Background()

	// Close right after Listen, before the serve loop has picked up the listener.
	for i := 0; i < 50; i++ {
		if err := srv.Listen(ctx); err != nil {
			t.Fatalf("Listen() error: %v", err)
		}
		addr := srv.Addr().String()

		if err := srv.Close(ctx); err != nil {
			t.Fatalf("Close() error: %v", err)
		}

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			t.Fatalf("round %d: port %s not released: %v", i, addr, err)
		}
		ln.Close()
	}
}

func TestCloseShutdownError(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := testserver.New(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		io.WriteString(w, "late")
	}))
	t.Cleanup(func() { _ = srv.Close(context.Background()) })

	errc := make(chan error, 1)
	go func() {
		res, err := srv.Get(context.Background(), "/slow")
		if err == nil {
			_, err = testserver.ReadText(res)
		}
		errc <- err
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Close(ctx)
	if !errors.Is(err, testserver.ErrShutdown) {
		t.Errorf("Close() error = %v, want ErrShutdown", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Close() error = %v, want it to wrap context.Canceled", err)
	}
	if srv.Addr() != nil {
		t.Errorf("Addr() = %v after failed shutdown, want nil", srv.Addr())
	}
	if err := srv.Close(context.Background()); !errors.Is(err, testserver.ErrNotRunning) {
		t.Errorf("second Close() error = %v, want ErrNotRunning", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Errorf("in-flight Get() error: %v", err)
	}

	if err := srv.Listen(context.Background()); err != nil {
		t.Fatalf("Listen() after failed shutdown error: %v", err)
	}
	if srv.Addr() == nil {
		t.Error("Addr() = nil after Listen")
	}
}

func TestClientIsUsed(t *testing.T) {
	client := &countingClient{HTTPClient: http.DefaultClient}
	srv := newEchoServer(t, testserver.WithHTTPClient(client))

	res, err := srv.Get(context.Background(), "/counted")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	res.Body.Close()

	if client.calls != 1 {
		t.Errorf("client calls = %d, want 1", client.calls)
	}
	if srv.Client() != testserver.HTTPClient(client) {
		t.Error("Client() did not return the configured client")
	}
}

type countingClient struct {
	testserver.HTTPClient
	calls int
}

func (c *countingClient) Do(req *http.Request) (*http.Response, error) {
	c.calls++
	return c.HTTPClient.Do(req)
}
