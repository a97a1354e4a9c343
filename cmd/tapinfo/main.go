// Command tapinfo prints the echo pattern of a multi-tap delay
// configuration: the configured taps, the detected echo peaks of its
// impulse response, and an optional magnitude response summary.
//
// Usage:
//
//	tapinfo [flags]
//
// Taps are given as comma-separated position:level pairs, both in [0, 1].
//
// Examples:
//
//	tapinfo -taps 1:1
//	tapinfo -delay 250 -decay 0.5 -taps 0.5:0.8,1:1
//	tapinfo -rate 44100 -maxdelay 1000 -delay 333 -taps 1:1 -spectrum
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-multitap/dsp/block"
	"github.com/cwbudde/algo-multitap/dsp/effects"
	"github.com/cwbudde/algo-multitap/measure/response"
)

func main() {
	rate := flag.Int("rate", 8000, "sample rate in Hz")
	maxDelay := flag.Float64("maxdelay", 500, "maximum delay in milliseconds")
	delayMs := flag.Float64("delay", 250, "delay window length in milliseconds")
	decay := flag.Float64("decay", 0.7, "feedback decay in [0, 1]")
	mix := flag.Float64("mix", 0.25, "dry/wet mix in [0, 1]")
	tapSpec := flag.String("taps", "1:1", "taps as position:level pairs, comma separated")
	lengthMs := flag.Float64("length", 0, "impulse response length in ms (0 = four delay windows)")
	threshold := flag.Float64("threshold", 0.001, "echo detection threshold")
	spectrum := flag.Bool("spectrum", false, "print a magnitude response summary")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tapinfo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Prints the echo pattern of a multi-tap delay configuration.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tapinfo -delay 250 -decay 0.5 -taps 0.5:0.8,1:1\n")
		fmt.Fprintf(os.Stderr, "  tapinfo -rate 44100 -maxdelay 1000 -delay 333 -taps 1:1 -spectrum\n")
	}
	flag.Parse()

	taps, err := parseTaps(*tapSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	e, err := effects.NewMultiTapDelay(float64(*rate), *maxDelay, 1,
		effects.WithDelayMs(block.Constant(*delayMs)),
		effects.WithDecay(block.Constant(*decay)),
		effects.WithMix(block.Constant(*mix)),
		effects.WithTaps(taps),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	length := int(*lengthMs / 1000 * float64(*rate))
	if *lengthMs <= 0 {
		length = 4 * (e.MaxDelaySamples() + 1)
	}
	if length < 1 {
		length = 1
	}

	e.StartBlock()
	printTaps(e, taps)

	a := response.NewAnalyzer()
	ir, err := a.ImpulseResponse(e, length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	peaks, err := a.EchoPeaks(ir, float64(*rate), *threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printPeaks(peaks)

	if *spectrum {
		mag, err := a.FrequencyResponse(ir, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		printSpectrum(mag, float64(*rate))
	}
}

func parseTaps(spec string) ([]effects.Tap, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	var taps []effects.Tap
	for _, part := range strings.Split(spec, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)

		pos, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tap position %q", fields[0])
		}

		level := 1.0
		if len(fields) == 2 {
			level, err = strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid tap level %q", fields[1])
			}
		}

		taps = append(taps, effects.Tap{Position: pos, Level: level})
	}
	return taps, nil
}

func printTaps(e *effects.MultiTapDelay, taps []effects.Tap) {
	fmt.Printf("sample rate: %.0f Hz, delay window: %.1f ms (%d samples), decay: %.3f, mix: %.3f\n\n",
		e.SampleRate(), e.DelayMs(), e.CurrentDelaySamples(),
		e.DecayInput().Resolve(), e.MixInput().Resolve())

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tap\tPosition\tLevel\tOffset [ms]\n")
	fmt.Fprintf(tw, "---\t--------\t-----\t-----------\n")
	for i, tap := range taps {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.2f\n",
			i, tap.Position, tap.Level, tap.Position*e.DelayMs())
	}
	tw.Flush()
	fmt.Println()
}

func printPeaks(peaks []response.Peak) {
	if len(peaks) == 0 {
		fmt.Println("no echoes above threshold")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Echo\tSample\tTime [ms]\tLevel\n")
	fmt.Fprintf(tw, "----\t------\t---------\t-----\n")
	for i, p := range peaks {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%.4f\n", i, p.Index, p.TimeMs, p.Level)
	}
	tw.Flush()
}

func printSpectrum(mag []float64, sampleRate float64) {
	fmt.Println()

	// Summarize the response in eight evenly spaced bands up to Nyquist.
	const bands = 8
	binHz := sampleRate / float64(2*(len(mag)-1))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Freq [Hz]\tMagnitude\n")
	fmt.Fprintf(tw, "---------\t---------\n")
	for b := 0; b < bands; b++ {
		bin := b * (len(mag) - 1) / (bands - 1)
		if b == bands-1 {
			bin = len(mag) - 1
		}
		fmt.Fprintf(tw, "%.1f\t%.4f\n", float64(bin)*binHz, mag[bin])
	}
	tw.Flush()
}
