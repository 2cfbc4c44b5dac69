package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pibotics/go-humanoid/internal/config"
	"github.com/pibotics/go-humanoid/internal/log"
	"github.com/pibotics/go-humanoid/pkg/hardware"
	"github.com/pibotics/go-humanoid/pkg/humanoid"
	"github.com/pibotics/go-humanoid/pkg/robot"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type CalibrateCommand struct {
	Calibration string `short:"c" long:"calibration" description:"Calibration file path"`
	Bus         string `long:"bus" description:"I2C bus name (default: first available)"`
	Sim         bool   `long:"sim" description:"Use the simulated adapter instead of real hardware"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	log.Init("warn")

	calPath := c.Calibration
	if calPath == "" {
		calPath = config.CalibrationPath()
	}
	bus := c.Bus
	if bus == "" {
		bus = config.I2CBus()
	}

	var adapter hardware.Adapter
	if c.Sim || config.SimMode() {
		adapter = hardware.NewSim()
	} else {
		adapter = hardware.NewPCA9685(bus)
	}

	bot := humanoid.New(adapter, humanoid.WithCalibrationPath(calPath))
	if err := bot.Initialize(); err != nil {
		return err
	}
	defer bot.Shutdown()

	fmt.Println(headerStyle.Render("go-humanoid calibration"))
	fmt.Println(dimStyle.Render("Joints start at their neutral angles. Adjust each joint and"))
	fmt.Println(dimStyle.Render("capture its limits, then save."))
	fmt.Println()

	p := tea.NewProgram(newCalibrateModel(bot, calPath))
	final, err := p.Run()
	if err != nil {
		return err
	}

	m := final.(calibrateModel)
	if m.saved {
		fmt.Println(successStyle.Render("Calibration saved to " + calPath))
	} else {
		fmt.Println(dimStyle.Render("Calibration not saved."))
	}
	return nil
}

type calibrateModel struct {
	bot     *humanoid.Robot
	calPath string

	selected int
	status   string
	statusOK bool
	saved    bool
	quitting bool
}

func newCalibrateModel(bot *humanoid.Robot, calPath string) calibrateModel {
	return calibrateModel{bot: bot, calPath: calPath}
}

func (m calibrateModel) Init() tea.Cmd {
	return nil
}

func (m calibrateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	ch := robot.Channel(m.selected)

	switch key.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < robot.NumChannels-1 {
			m.selected++
		}

	case "left", "h":
		m.nudge(ch, -1)
	case "right", "l":
		m.nudge(ch, +1)
	case "shift+left", "H":
		m.nudge(ch, -5)
	case "shift+right", "L":
		m.nudge(ch, +5)

	case "[":
		m.captureLimit(ch, limitMin)
	case "]":
		m.captureLimit(ch, limitMax)
	case "n":
		m.captureLimit(ch, limitNeutral)

	case "c":
		cal, err := m.bot.Calibration(ch)
		if err != nil {
			m.fail(err)
			break
		}
		if err := m.bot.SetServo(ch, cal.NeutralAngle, 0); err != nil {
			m.fail(err)
			break
		}
		m.ok(fmt.Sprintf("%s centered at %.0f", ch.Name(), cal.NeutralAngle))

	case "s":
		if err := m.bot.SaveCalibration(); err != nil {
			m.fail(err)
			break
		}
		m.saved = true
		m.ok("saved to " + m.calPath)
	}

	return m, nil
}

// nudge moves the selected joint by delta degrees at top speed.
func (m *calibrateModel) nudge(ch robot.Channel, delta float64) {
	pos, err := m.bot.Position(ch)
	if err != nil {
		m.fail(err)
		return
	}
	if err := m.bot.SetServo(ch, pos+delta, 0); err != nil {
		m.fail(err)
		return
	}
	m.status = ""
}

type limitKind int

const (
	limitMin limitKind = iota
	limitMax
	limitNeutral
)

// captureLimit records the joint's current position as one of its
// calibration bounds.
func (m *calibrateModel) captureLimit(ch robot.Channel, kind limitKind) {
	pos, err := m.bot.Position(ch)
	if err != nil {
		m.fail(err)
		return
	}
	cal, err := m.bot.Calibration(ch)
	if err != nil {
		m.fail(err)
		return
	}

	var label string
	switch kind {
	case limitMin:
		cal.MinAngle = pos
		label = "min"
	case limitMax:
		cal.MaxAngle = pos
		label = "max"
	case limitNeutral:
		cal.NeutralAngle = pos
		label = "neutral"
	}

	if err := m.bot.SetCalibration(ch, cal); err != nil {
		m.fail(err)
		return
	}
	m.ok(fmt.Sprintf("%s %s = %.0f", ch.Name(), label, pos))
}

func (m *calibrateModel) ok(msg string) {
	m.status = msg
	m.statusOK = true
}

func (m *calibrateModel) fail(err error) {
	m.status = err.Error()
	m.statusOK = false
}

func (m calibrateModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, robot.NumChannels)
	for _, ch := range robot.AllChannels() {
		pos, _ := m.bot.Position(ch)
		cal, _ := m.bot.Calibration(ch)

		marker := " "
		if int(ch) == m.selected {
			marker = ">"
		}
		rows = append(rows, []string{
			marker,
			fmt.Sprintf("%d", int(ch)),
			ch.Name(),
			fmt.Sprintf("%.0f", pos),
			fmt.Sprintf("%.0f", cal.MinAngle),
			fmt.Sprintf("%.0f", cal.NeutralAngle),
			fmt.Sprintf("%.0f", cal.MaxAngle),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("", "Ch", "Joint", "Position", "Min", "Neutral", "Max").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if row == m.selected {
				return selectedStyle
			}
			return cellStyle
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	if m.status != "" {
		if m.statusOK {
			sb.WriteString(successStyle.Render(m.status))
		} else {
			sb.WriteString(errorStyle.Render(m.status))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("↑/↓ joint · ←/→ move 1° (shift: 5°) · [ min · ] max · n neutral · c center · s save · q quit"))
	return sb.String()
}
