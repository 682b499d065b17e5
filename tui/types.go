package tui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/aptdecoder/apt"
	"github.com/jrwynneiii/aptdecoder/flowgraph"
	"github.com/rivo/tview"
)

type BlockTableData struct {
	tview.TableContentReadOnly

	mu     sync.RWMutex
	blocks []flowgraph.BlockStats
}

type LockTableData struct {
	tview.TableContentReadOnly

	mu    sync.RWMutex
	stats apt.Stats
}

func (b *BlockTableData) update(blocks []flowgraph.BlockStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocks = blocks
}

func (b *BlockTableData) GetRowCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blocks) + 1
}

func (b *BlockTableData) GetColumnCount() int {
	return 4
}

func (b *BlockTableData) GetCell(row, column int) *tview.TableCell {
	if row == 0 {
		switch column {
		case 0:
			return tview.NewTableCell("[lightskyblue]Block ")
		case 1:
			return tview.NewTableCell("[white]Samples In ")
		case 2:
			return tview.NewTableCell("[white]Samples Out ")
		case 3:
			return tview.NewTableCell("[green]Finished")
		}
		return tview.NewTableCell("ERROR")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if row-1 >= len(b.blocks) {
		return tview.NewTableCell("")
	}
	block := b.blocks[row-1]
	switch column {
	case 0:
		return tview.NewTableCell(fmt.Sprintf("[lightskyblue]%s", block.Name))
	case 1:
		return tview.NewTableCell(fmt.Sprintf("[white]%d", block.Consumed))
	case 2:
		return tview.NewTableCell(fmt.Sprintf("[white]%d", block.Produced))
	case 3:
		if block.Finished {
			return tview.NewTableCell("[green]yes")
		}
		return tview.NewTableCell("[red]no")
	}
	return tview.NewTableCell("ERROR")
}

func (l *LockTableData) update(stats apt.Stats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = stats
}

func (l *LockTableData) GetRowCount() int {
	return 5
}

func (l *LockTableData) GetColumnCount() int {
	return 2
}

func (l *LockTableData) GetCell(row, column int) *tview.TableCell {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch row {
	case 0:
		if column == 0 {
			return tview.NewTableCell("Sync lock:")
		}

		color := tcell.ColorGreen
		if !l.stats.HasSync {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(fmt.Sprintf("%v", l.stats.HasSync)).SetTextColor(color)
	case 1:
		if column == 0 {
			return tview.NewTableCell("Lines:")
		}

		return tview.NewTableCell(fmt.Sprintf("%d / %d", l.stats.Y, apt.Lines))
	case 2:
		if column == 0 {
			return tview.NewTableCell("Sync A / B:")
		}

		return tview.NewTableCell(fmt.Sprintf("%d / %d", l.stats.SyncA, l.stats.SyncB))
	case 3:
		if column == 0 {
			return tview.NewTableCell("Saves:")
		}

		return tview.NewTableCell(fmt.Sprintf("%d", l.stats.Flushes))
	case 4:
		if column == 0 {
			return tview.NewTableCell("Failed Saves:")
		}

		color := tcell.ColorGreen
		if l.stats.FlushErrors > 0 {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(fmt.Sprintf("%d", l.stats.FlushErrors)).SetTextColor(color)
	}
	return tview.NewTableCell("ERROR")
}

// signalPercent is the running average level as a share of the peak the brightness scale uses.
func signalPercent(st apt.Stats) float64 {
	if st.MaxLevel <= 0 {
		return 0
	}
	return min(100, float64(st.AvgLevel/st.MaxLevel)*100)
}

func imagePercent(st apt.Stats) float64 {
	return min(100, float64(st.Y)/apt.Lines*100)
}

func linePercent(st apt.Stats) float64 {
	return float64(st.X) / apt.PixelsPerLine * 100
}
