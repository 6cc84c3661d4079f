//go:build linux

package transport

import "time"

func newUring(kind Kind, r Resolver, timeout time.Duration) (Transport, error) {
	if kind == KindUringV2 {
		t, err := NewUringTransportV2()
		if err != nil {
			return nil, err
		}
		t.Resolver = r
		t.ConnectTimeout = timeout
		return t, nil
	}

	t, err := NewUringTransport()
	if err != nil {
		return nil, err
	}
	t.Resolver = r
	t.ConnectTimeout = timeout
	return t, nil
}
