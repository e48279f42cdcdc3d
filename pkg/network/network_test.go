package network

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func listen(t *testing.T) *net.TCPListener {
	t.Helper()
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// closedPort - 监听后立即关闭, 得到一个没有服务的端口
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// serve - 接受连接, 由handle处理
func serve(l *net.TCPListener, handle func(net.Conn)) {
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()
}

func splitHostPort(t *testing.T, address string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(address)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestChecker_TCPPing(t *testing.T) {
	checker := NewChecker(zap.NewNop(), time.Second)

	t.Run("open port", func(t *testing.T) {
		l := listen(t)
		serve(l, func(c net.Conn) { c.Close() })
		assert.True(t, checker.TCPPing("127.0.0.1", l.Addr().(*net.TCPAddr).Port))
	})

	t.Run("refused", func(t *testing.T) {
		assert.False(t, checker.TCPPing("127.0.0.1", closedPort(t)))
	})

	t.Run("unresolvable host", func(t *testing.T) {
		assert.False(t, checker.TCPPing("host.invalid", 80))
	})
}

func TestChecker_SSLPing(t *testing.T) {
	checker := NewChecker(zap.NewNop(), 500*time.Millisecond)

	t.Run("self signed server", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		host, port := splitHostPort(t, srv.Listener.Addr().String())
		assert.True(t, checker.SSLPing(host, port))
	})

	t.Run("refused", func(t *testing.T) {
		assert.False(t, checker.SSLPing("127.0.0.1", closedPort(t)))
	})

	t.Run("plain tcp peer closes", func(t *testing.T) {
		l := listen(t)
		serve(l, func(c net.Conn) { c.Close() })
		assert.False(t, checker.SSLPing("127.0.0.1", l.Addr().(*net.TCPAddr).Port))
	})

	t.Run("handshake timeout", func(t *testing.T) {
		l := listen(t)
		done := make(chan struct{})
		defer close(done)
		serve(l, func(c net.Conn) {
			<-done
			c.Close()
		})

		start := time.Now()
		assert.False(t, checker.SSLPing("127.0.0.1", l.Addr().(*net.TCPAddr).Port))
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

func TestNewChecker_DefaultTimeout(t *testing.T) {
	checker := NewChecker(nil, 0)
	assert.Equal(t, DefaultCheckTimeout, checker.timeout)
	assert.NotNil(t, checker.logger)
}
