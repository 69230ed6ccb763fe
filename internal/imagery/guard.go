package imagery

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

const maxRedirects = 5

var (
	ErrBlockedAddress = errors.New("image host resolves to a non-public address")
	ErrHostNotAllowed = errors.New("image host is not allowed")
)

// Ranges that are not covered by the netip predicates but still reach
// infrastructure rather than the public internet.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

type LoaderOption func(*Loader)

// WithAllowedHosts restricts downloads to the given hosts and their subdomains.
// An empty list allows every public host.
func WithAllowedHosts(hosts ...string) LoaderOption {
	return func(l *Loader) {
		for _, h := range hosts {
			if h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), "."); h != "" {
				l.allowedHosts = append(l.allowedHosts, h)
			}
		}
	}
}

// WithPrivateNetworks lets downloads reach loopback and private addresses.
func WithPrivateNetworks(allow bool) LoaderOption {
	return func(l *Loader) {
		l.allowPrivate = allow
	}
}

// newGuardedClient dials only public addresses unless private networks are
// allowed, and re-checks the host on every redirect. Proxies are never used so
// the checked address is the one connected to.
func (l *Loader) newGuardedClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout, Control: l.checkDial}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: timeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return l.checkURL(req.URL)
		},
	}
}

func (l *Loader) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrHostNotAllowed, u.Scheme)
	}
	if len(l.allowedHosts) == 0 {
		return nil
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, allowed := range l.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
}

func (l *Loader) checkDial(_, address string, _ syscall.RawConn) error {
	if l.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	if !isPublicAddress(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

func isPublicAddress(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() || addr.IsLoopback() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}
