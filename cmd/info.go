package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/0xlemi/guitartuner/internal/notes"
	"github.com/0xlemi/guitartuner/internal/tuning"
	"github.com/spf13/cobra"
)

var tuningsInstrument string

var tuningsCmd = &cobra.Command{
	Use:   "tunings",
	Short: "List the built-in tunings",
	Args:  cobra.NoArgs,
	RunE:  runTunings,
}

var noteCmd = &cobra.Command{
	Use:   "note <symbol|frequency>",
	Short: "Show pitch details for a note symbol or a frequency in Hz",
	Args:  cobra.ExactArgs(1),
	RunE:  runNote,
}

func init() {
	tuningsCmd.Flags().StringVarP(&tuningsInstrument, "instrument", "i", "", "Only list tunings for this instrument")
}

func runTunings(cmd *cobra.Command, _ []string) error {
	var filter *tuning.Instrument
	if tuningsInstrument != "" {
		i, err := tuning.ParseInstrument(tuningsInstrument)
		if err != nil {
			return err
		}
		filter = &i
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINSTRUMENT\tCATEGORY\tSTRINGS")
	for _, t := range tuning.Builtin() {
		if filter != nil && t.Instrument() != *filter {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name(), t.Instrument(), t.Category(), t.Symbols())
	}
	return w.Flush()
}

func runNote(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if index, err := notes.ParseSymbol(args[0]); err == nil {
		fmt.Fprintf(out, "%s: %.2f Hz, %+d semitones from A4, MIDI key %d\n",
			notes.Name(index), notes.PitchOf(index), index, notes.MIDIKey(index))
		if !notes.InRange(index) {
			fmt.Fprintf(out, "outside the detectable range %s to %s\n",
				notes.Name(notes.LowestNote), notes.Name(notes.HighestNote))
		}
		return nil
	}

	freq, err := strconv.ParseFloat(args[0], 64)
	if err != nil || freq <= 0 {
		return fmt.Errorf("%q is neither a note symbol nor a frequency", args[0])
	}

	offset := notes.OffsetFromReference(freq)
	index := notes.NearestIndex(freq)
	fmt.Fprintf(out, "%.2f Hz: nearest %s (%.2f Hz), %+.1f cents\n",
		freq, notes.Name(index), notes.PitchOf(index), (offset-float64(index))*100)
	return nil
}
