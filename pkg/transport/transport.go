// Package transport provides byte streams for a link.
package transport

import (
	"github.com/robotalks/evlink/pkg/link"
)

// Transport is the stream a link runs over.
type Transport = link.Transport
