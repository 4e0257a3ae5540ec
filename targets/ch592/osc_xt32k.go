//go:build ch592 && xt32k

package main

import "pdflogger/core"

// External 32768 Hz crystal, needed for low power sleep
const oscSource = core.OscExternal32768
