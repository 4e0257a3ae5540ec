//go:build ch592 && !xt32k && lsi32768

package main

import "pdflogger/core"

const oscSource = core.OscInternal32768
