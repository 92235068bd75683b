package element

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

type Hostname struct {
	Host string
	Port int
}

func (h Hostname) String() string {
	if h.Port == 0 {
		return h.Host
	}
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// ParseHostname parses "host" or "host:port".
func ParseHostname(s string) (Hostname, error) {
	if s == "" {
		return Hostname{}, fmt.Errorf("empty hostname")
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// no port
		return Hostname{Host: s}, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return Hostname{}, fmt.Errorf("invalid port in %q", s)
	}
	return Hostname{Host: host, Port: p}, nil
}

// HostnameFromURL extracts the host of an http or https URL.  A missing port
// defaults to the scheme's port.
func HostnameFromURL(s string) (Hostname, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Hostname{}, err
	}
	if u.Host == "" {
		return Hostname{}, fmt.Errorf("url %q has no host", s)
	}
	h := Hostname{Host: u.Hostname()}
	if p := u.Port(); p != "" {
		h.Port, err = strconv.Atoi(p)
		if err != nil {
			return Hostname{}, err
		}
		return h, nil
	}
	switch u.Scheme {
	case "https":
		h.Port = 443
	default:
		h.Port = 80
	}
	return h, nil
}

// HostnameFacet marks an element whose content is a hostname.
type HostnameFacet struct {
	Hostname Hostname
}

func (HostnameFacet) Kind() Kind   { return HostnameKind }
func (f HostnameFacet) Value() any { return f.Hostname.String() }

// TCPIPFacet records where a top-level message came from and went to.
type TCPIPFacet struct {
	Sequence uint64
	Sender   *Element
	Receiver *Element
}

func (TCPIPFacet) Kind() Kind { return TCPIPKind }

func (f TCPIPFacet) Children() []Child {
	var res []Child
	if f.Sender != nil {
		res = append(res, Child{Name: "sender", Element: f.Sender})
	}
	if f.Receiver != nil {
		res = append(res, Child{Name: "receiver", Element: f.Receiver})
	}
	return res
}

// AttachTCPIP adds a TCPIPFacet to el with children for the known endpoints.
func AttachTCPIP(el *Element, seq uint64, sender, receiver *Hostname) {
	f := TCPIPFacet{Sequence: seq}
	if sender != nil {
		f.Sender = el.NewChildString("sender", sender.String())
		f.Sender.AddFacet(HostnameFacet{Hostname: *sender})
	}
	if receiver != nil {
		f.Receiver = el.NewChildString("receiver", receiver.String())
		f.Receiver.AddFacet(HostnameFacet{Hostname: *receiver})
	}
	el.AddFacet(f)
}
