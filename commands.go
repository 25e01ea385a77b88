package main

// Allow list of two character commands accepted by the envelope ranging
// module over its serial console.
var allowedCommands = []string{
	"??", // Query overall module information
	"?P", // Read Sensor Part Number
	"?N", // Read Serial Number
	"?V", // Read Firmware Version
	"?B", // Read Firmware Build Number
	"?D", // Read Build Date

	// Envelope service control
	"E+", // Start the envelope service stream
	"E-", // Stop the envelope service stream
	"E?", // Query envelope service status

	// Range window
	"r?", // Query configured range window
	"r<", // Decrease range window start
	"r>", // Increase range window start
	"R<", // Decrease range window end
	"R>", // Increase range window end

	// Sweep rate
	"F?", // Query configured sweep update rate
	"F1", // Set sweep update rate to 10 Hz
	"F2", // Set sweep update rate to 20 Hz
	"F4", // Set sweep update rate to 40 Hz
	"F8", // Set sweep update rate to 80 Hz

	// Output settings
	"O?", // Query output settings
	"OE", // Enable framed envelope sweep output
	"Oe", // Disable framed envelope sweep output
	"OS", // Prefix frames with the sweep sequence counter
	"Os", // Drop the sweep sequence prefix

	// Gain and noise handling
	"G?", // Query receiver gain
	"G+", // Increase receiver gain
	"G-", // Decrease receiver gain
	"N+", // Enable noise level normalization
	"N-", // Disable noise level normalization
	"N?", // Query noise level normalization setting

	// Power
	"PA", // Set active power mode
	"PI", // Set idle power mode

	// Persistent memory
	"A!", // Save current configuration to persistent memory
	"A?", // Query persistent memory settings
	"AX", // Reset flash settings to factory defaults
}

// isAllowedCommand reports whether a command is on the allow list.
func isAllowedCommand(command string) bool {
	for _, c := range allowedCommands {
		if c == command {
			return true
		}
	}
	return false
}
