//go:build ch592 && !xt32k && !lsi32768

package main

import "pdflogger/core"

// Default build: internal RC trimmed to 32000 Hz
const oscSource = core.OscInternal32000
