package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/aptdecoder/config"
	"github.com/jrwynneiii/aptdecoder/demod"
	"github.com/jrwynneiii/aptdecoder/source"
	"github.com/jrwynneiii/aptdecoder/tui"
)

// probeTolerance is how far the measured subcarrier may drift before probe complains.
const probeTolerance = 50.0

func main() {
	log.Info("Starting aptdecoder")
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cli.Profile {
		prof, err := os.Create("./cpu.pprof")
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(prof)
		defer pprof.StopCPUProfile()
	}

	conf, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	switch strings.Fields(flags.Command())[0] {
	case "decode":
		if cli.Decode.Input != "" {
			conf.Source.Path = cli.Decode.Input
		}
		if cli.Decode.Output != "" {
			conf.Image.Path = cli.Decode.Output
		}
		if err := decode(conf, cli.Decode.Tui); err != nil {
			log.Fatalf("Decoding failed: %v", err)
		}

	case "probe":
		if err := probe(cli.Probe.Input, cli.Probe.Seconds, cli.Probe.Plot); err != nil {
			log.Fatalf("Probe failed: %v", err)
		}

	default:
		log.Info("Command not recognized")
	}
}

func decode(conf config.Conf, withUI bool) error {
	d, err := newDecoder(conf)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- d.fg.Run(ctx)
	}()

	if withUI {
		err = tui.StartUI(d.fg, d.sink, done, stop, conf.Tui)
	} else {
		err = <-done
	}
	if err != nil {
		return err
	}

	st := d.sink.Stats()
	log.Infof("Wrote %s: %d lines in %s (sync A: %d, sync B: %d, failed saves: %d)",
		conf.Image.Path, st.Y, time.Since(start).Round(time.Millisecond), st.SyncA, st.SyncB, st.FlushErrors)
	if !st.HasSync {
		log.Warn("Never acquired sync, the image is probably noise")
	}
	return nil
}

func probe(path string, seconds float64, plotPath string) error {
	src, err := source.Open(path, 0)
	if err != nil {
		return err
	}
	defer src.Close()
	log.Infof("%s: %s, %d Hz, %d channel(s)", path, src.Format, src.SampleRate, src.Channels)

	samples, err := readSeconds(src, seconds)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return fmt.Errorf("%s holds no audio", path)
	}

	spectrum := demod.NewSpectrum(samples, float64(src.SampleRate))
	freq, power, ok := spectrum.Peak(1000, 4000)
	if !ok {
		return fmt.Errorf("sample rate %d Hz is too low to see the subcarrier", src.SampleRate)
	}
	snr := spectrum.SNR(freq, probeTolerance, 1000, 4000)
	log.Infof("Peak at %.1f Hz (%.1f dB), %.1f dB above the noise floor", freq, power, snr)
	if math.Abs(freq-demod.SubcarrierFrequency) > probeTolerance {
		log.Warnf("Peak is %.0f Hz away from the %.0f Hz APT subcarrier", freq-demod.SubcarrierFrequency, demod.SubcarrierFrequency)
	}

	if plotPath != "" {
		title := fmt.Sprintf("%s (%.1f s)", path, float64(len(samples))/float64(src.SampleRate))
		if err := spectrum.Plot(plotPath, title, 0, float64(src.SampleRate)/2); err != nil {
			return fmt.Errorf("could not plot spectrum: %w", err)
		}
		log.Infof("Wrote spectrum plot to %s", plotPath)
	}
	return nil
}

func readSeconds(src *source.FileSource, seconds float64) ([]float32, error) {
	want := int(seconds * float64(src.SampleRate))
	samples := make([]float32, 0, want)
	buf := make([]float32, src.ChunkSize)
	for len(samples) < want {
		n, err := src.Read(buf[:min(len(buf), want-len(samples))])
		samples = append(samples, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return samples, nil
}
