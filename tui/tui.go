package tui

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/aptdecoder/apt"
	"github.com/jrwynneiii/aptdecoder/config"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
	"github.com/navidys/tvxwidgets"
	"github.com/rivo/tview"
)

var LogOut *tview.TextView

func newGauge(label string) *tvxwidgets.UtilModeGauge {
	g := tvxwidgets.NewUtilModeGauge()
	g.SetLabel(label)
	g.SetLabelColor(tcell.ColorLightSkyBlue)
	g.SetWarnPercentage(99)
	g.SetCritPercentage(100)
	g.SetEmptyColor(tcell.ColorBlack)
	g.SetBorder(false)
	return g
}

// StartUI shows the decoder's progress until the run reports on done or the user quits. Quitting
// early calls cancel and waits for the run to wind down. It returns the run's result.
func StartUI(fg *flowgraph.Flowgraph, sink *apt.ImageSink, done <-chan error, cancel func(), tuiConf config.TuiConf) error {
	app := tview.NewApplication()

	LogOut = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	blockData := &BlockTableData{}
	lockData := &LockTableData{}
	blockStats := tview.NewTable().SetContent(blockData)
	lockTable := tview.NewTable().SetContent(lockData)

	linePlot := tvxwidgets.NewPlot()
	linePlot.SetLineColor([]tcell.Color{tcell.ColorLightSkyBlue})
	linePlot.SetMarker(tvxwidgets.PlotMarkerBraille)

	lineGauge := newGauge("Line Progress:     ")
	imageGauge := newGauge("Image Fill:        ")
	signalGauge := newGauge("Signal Level:      ")

	gaugeBox := tview.NewFlex()
	gaugeBox.SetDirection(tview.FlexRow)
	gaugeBox.AddItem(lineGauge, 0, 1, false)
	gaugeBox.AddItem(imageGauge, 0, 1, false)
	gaugeBox.AddItem(signalGauge, 0, 1, false)
	gaugeBox.SetTitle("Progress")
	gaugeBox.SetBorder(true)

	LogOut.SetChangedFunc(func() {
		LogOut.ScrollToEnd()
		app.Draw()
	})

	LogOut.SetBorder(true).SetTitle("Log Output")
	// Anything written to stderr would tear the screen.
	if tuiConf.EnableLogOutput {
		log.SetOutput(tview.ANSIWriter(LogOut))
	} else {
		log.SetOutput(io.Discard)
	}
	blockStats.SetSelectable(false, false).SetBorder(true).SetTitle("Per-Block Stats")
	lockTable.SetSelectable(false, false).SetBorder(false)

	decoderStats := tview.NewFlex().SetDirection(tview.FlexRow)
	decoderStats.AddItem(tview.NewBox(), 0, 1, false)
	decoderStats.AddItem(lockTable, 0, 3, false)
	decoderStats.SetBorder(true)
	decoderStats.SetTitle("Decoder Status")

	linePlot.SetBorder(true)
	linePlot.SetTitle("Last Line")

	page := tview.NewFlex().SetDirection(tview.FlexColumn)

	leftCol := tview.NewFlex().SetDirection(tview.FlexRow)
	leftCol.AddItem(blockStats, 0, 3, false)
	leftCol.AddItem(decoderStats, 0, 2, false)

	rightCol := tview.NewFlex().SetDirection(tview.FlexRow)
	rightCol.AddItem(gaugeBox, 0, 2, false)
	rightCol.AddItem(linePlot, 0, 3, false)
	if tuiConf.EnableLogOutput {
		rightCol.AddItem(LogOut, 0, 2, false)
	}

	page.AddItem(leftCol, 0, 2, false)
	page.AddItem(rightCol, 0, 5, false)

	refresh := func() {
		st := sink.Stats()
		blockData.update(fg.Stats())
		lockData.update(st)

		lineGauge.SetValue(linePercent(st))
		imageGauge.SetValue(imagePercent(st))
		signalGauge.SetValue(signalPercent(st))
		if len(st.LastLine) > 0 {
			linePlot.SetData([][]float64{st.LastLine})
		}
	}

	result := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(tuiConf.RefreshMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case err := <-done:
				result <- err
				app.QueueUpdateDraw(refresh)
				if err != nil {
					log.Errorf("Decoding stopped: %v", err)
				} else {
					log.Info("Decoding finished, press Ctrl-C to exit")
				}
				return
			case <-ticker.C:
				app.QueueUpdateDraw(refresh)
			case <-stopped:
				return
			}
		}
	}()

	err := app.SetRoot(page, true).EnableMouse(true).Run()
	close(stopped)
	log.SetOutput(os.Stderr)
	if err != nil {
		log.Fatalf("Could not start UI: %v", err)
	}

	select {
	case runErr := <-result:
		return runErr
	default:
	}
	// The user quit before the run completed.
	cancel()
	select {
	case runErr := <-result:
		return runErr
	case runErr := <-done:
		return runErr
	}
}
