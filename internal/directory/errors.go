package directory

import "errors"

// ErrOffline indicates the directory service is unreachable. It is an
// expected transient condition, not a failure of this process: callers
// wait for the connectivity-restored notification instead of retrying.
var ErrOffline = errors.New("directory server offline")
