package main

var cli struct {
	Verbose bool   `help:"Prints debug output by default"`
	Profile bool   `help:"Output a pprof profile"`
	Config  string `help:"Path to an HCL config file" type:"path"`

	Decode struct {
		Input  string `arg:"" optional:"" help:"WAV or MP3 recording of an APT pass (overrides source.path)"`
		Output string `short:"o" help:"PNG file to write (overrides image.path)"`
		Tui    bool   `help:"Show the terminal monitor while decoding"`
	} `cmd:"" help:"Decodes a recording into a PNG image"`

	Probe struct {
		Input   string  `arg:"" help:"WAV or MP3 recording to inspect"`
		Seconds float64 `default:"5" help:"How much of the recording to analyse"`
		Plot    string  `help:"Write the spectrum to this PNG file"`
	} `cmd:"" help:"Reports the audio format and where the 2400 Hz subcarrier sits"`
}
