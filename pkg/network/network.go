package network

import (
	"crypto/tls"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"net"
	"strconv"
	"time"
)

// DefaultCheckTimeout - tcp_ping/ssl_ping的连接超时
const DefaultCheckTimeout = 3 * time.Second

func dialer(timeout time.Duration) *net.Dialer {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &net.Dialer{Timeout: timeout}
}

// CheckTcpAddress - 建立TCP连接
func CheckTcpAddress(address string, timeout time.Duration) error {
	conn, err := dialer(timeout).Dial("tcp", address)
	if err != nil {
		return errors.WithStack(err)
	}
	defer conn.Close()
	return nil
}

// CheckTlsAddress - 建立TCP连接并完成TLS握手, 不校验证书
func CheckTlsAddress(address string, timeout time.Duration) error {
	conn, err := tls.DialWithDialer(dialer(timeout), "tcp", address, &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec
	})
	if err != nil {
		return errors.WithStack(err)
	}
	defer conn.Close()
	return nil
}

// Checker - 可达性检查, 任何错误都返回false
type Checker struct {
	logger  *zap.Logger
	timeout time.Duration
}

func NewChecker(logger *zap.Logger, timeout time.Duration) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{logger: logger, timeout: timeout}
}

func (c *Checker) TCPPing(ip string, port int) bool {
	address := net.JoinHostPort(ip, strconv.Itoa(port))
	if err := CheckTcpAddress(address, c.timeout); err != nil {
		c.logger.Error("tcp_ping unable to connect",
			zap.String("address", address), zap.Error(err))
		return false
	}
	return true
}

func (c *Checker) SSLPing(ip string, port int) bool {
	address := net.JoinHostPort(ip, strconv.Itoa(port))
	if err := CheckTlsAddress(address, c.timeout); err != nil {
		c.logger.Error("ssl_ping unable to connect",
			zap.String("address", address), zap.Error(err))
		return false
	}
	return true
}
