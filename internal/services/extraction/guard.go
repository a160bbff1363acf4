package extraction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// maxRedirects — сколько перенаправлений допускается при загрузке страницы.
const maxRedirects = 5

var ErrForbiddenHost = errors.New("listing host resolves to a non-public address")

// sharedPrefixes — диапазоны, не покрытые методами netip.Addr, но недоступные снаружи.
var sharedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// isForbiddenAddr — адрес внутренней сети: loopback, RFC 1918, link-local (в том числе
// 169.254.169.254), ULA, multicast и служебные диапазоны.
func isForbiddenAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() {
		return true
	}
	for _, p := range sharedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// hostGuard не пускает загрузку страниц во внутреннюю сеть.
// blocked == nil отключает проверку.
type hostGuard struct {
	blocked  func(netip.Addr) bool
	resolver *net.Resolver
}

func newHostGuard(allowPrivate bool) *hostGuard {
	g := &hostGuard{resolver: net.DefaultResolver}
	if !allowPrivate {
		g.blocked = isForbiddenAddr
	}
	return g
}

// checkHost разрешает имя хоста и отклоняет его, если хотя бы один адрес внутренний.
func (g *hostGuard) checkHost(ctx context.Context, host string) error {
	if g.blocked == nil {
		return nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if g.blocked(addr) {
			return ErrForbiddenHost
		}
		return nil
	}

	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	for _, addr := range addrs {
		if g.blocked(addr) {
			return ErrForbiddenHost
		}
	}
	return nil
}

// control проверяет уже разрешённый адрес перед соединением. Срабатывает и для
// перенаправлений, и при смене DNS-ответа между проверкой и загрузкой.
func (g *hostGuard) control(_, address string, _ syscall.RawConn) error {
	if g.blocked == nil {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return ErrForbiddenHost
	}
	if g.blocked(ap.Addr()) {
		return ErrForbiddenHost
	}
	return nil
}

// httpClient — клиент без прокси, с проверкой адреса при каждом соединении.
func (g *hostGuard) httpClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   g.control,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w: too many redirects", ErrFetchFailed)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("%w: redirect to %s", ErrFetchFailed, req.URL.Scheme)
			}
			return nil
		},
	}
}
