package reqlog

import "errors"

// ErrBufferFull is reported when the async buffer overflows and an entry
// is dropped.
var ErrBufferFull = errors.New("request log buffer full")
