package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"

	"gohack/pkg/cpu"
	"gohack/pkg/program"
)

const statusHeight = 16

type Game struct {
	mu            sync.Mutex
	vm            *cpu.CPU
	stepsPerFrame int
	held          uint16 // last typed character, kept while a key is down
	err           error
	screenImg     *ebiten.Image // reused 512×256 canvas
}

func NewGame(vm *cpu.CPU, stepsPerFrame int) *Game {
	return &Game{vm: vm, stepsPerFrame: stepsPerFrame}
}

func (g *Game) Update() error {
	chars := ebiten.AppendInputChars(nil)
	keys := inpututil.AppendPressedKeys(nil)
	g.tick(chars, keys)
	return nil
}

// tick applies one frame of keyboard input and runs the CPU for a frame.
func (g *Game) tick(chars []rune, keys []ebiten.Key) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var code uint16
	code, g.held = keyCode(g.held, chars, keys)
	g.vm.SetKey(code)

	for i := 0; i < g.stepsPerFrame; i++ {
		if g.vm.Halted || g.err != nil {
			break
		}
		g.err = g.vm.Step()
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(cpu.ScreenWidth, cpu.ScreenHeight)
	}

	g.mu.Lock()
	g.screenImg.WritePixels(g.vm.GetFramebufferRGBA())
	status := g.status()
	g.mu.Unlock()

	screen.DrawImage(g.screenImg, nil)
	ebitenutil.DebugPrintAt(screen, status, 2, cpu.ScreenHeight)
}

func (g *Game) status() string {
	state := "running"
	switch {
	case g.err != nil:
		state = g.err.Error()
	case g.vm.Halted:
		state = "halted"
	}
	return fmt.Sprintf("PC=%d KBD=%d steps=%d %s", g.vm.PC, g.vm.RAM[cpu.KBD], g.vm.Steps, state)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return cpu.ScreenWidth, cpu.ScreenHeight + statusHeight
}

// startAutosaver hibernates the machine to path every interval while stop is open.
func startAutosaver(g *Game, path string, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := g.save(path); err != nil {
				log.Printf("autosave: %v", err)
			}
		case <-stop:
			return
		}
	}
}

func (g *Game) save(path string) error {
	g.mu.Lock()
	data, err := g.vm.HibernateToBytes()
	g.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var opts struct {
	stepsPerFrame int
	noBootstrap   bool
	scale         int
	restore       string
	autosave      string
	interval      time.Duration
}

var rootCmd = &cobra.Command{
	Use:   "hackdesktop [<file.hack|file.asm|file.vm|dir|hack.yaml>]",
	Short: "Run a Hack program with its screen and keyboard in a window",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOptions(); err != nil {
			return err
		}
		vm := cpu.NewCPU()
		if len(args) == 1 {
			words, err := program.Load(args[0], program.Options{Bootstrap: !opts.noBootstrap})
			if err != nil {
				return err
			}
			if err := vm.Load(words); err != nil {
				return err
			}
		} else if opts.restore == "" {
			return errors.New("nothing to run: give a program or --restore")
		}
		if opts.restore != "" {
			if err := vm.RestoreFromFile(opts.restore); err != nil {
				return err
			}
		}

		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
		ebiten.SetWindowSize(cpu.ScreenWidth*opts.scale, (cpu.ScreenHeight+statusHeight)*opts.scale)
		ebiten.SetWindowTitle("Hack")

		game := NewGame(vm, opts.stepsPerFrame)

		stop := make(chan struct{})
		if opts.autosave != "" {
			go startAutosaver(game, opts.autosave, opts.interval, stop)
		}

		err := ebiten.RunGame(game)

		close(stop)
		if opts.autosave != "" {
			if serr := game.save(opts.autosave); serr != nil {
				log.Printf("autosave: %v", serr)
			}
		}
		return err
	},
}

func checkOptions() error {
	if opts.autosave != "" && opts.interval <= 0 {
		return fmt.Errorf("--autosave-interval must be positive, got %v", opts.interval)
	}
	if opts.stepsPerFrame < 1 {
		return fmt.Errorf("--steps-per-frame must be at least 1, got %d", opts.stepsPerFrame)
	}
	if opts.scale < 1 {
		return fmt.Errorf("--scale must be at least 1, got %d", opts.scale)
	}
	return nil
}

func init() {
	f := rootCmd.Flags()
	f.IntVar(&opts.stepsPerFrame, "steps-per-frame", 30000, "instructions executed per frame (60 frames per second)")
	f.BoolVar(&opts.noBootstrap, "no-bootstrap", false, "translate VM input without the bootstrap")
	f.IntVar(&opts.scale, "scale", 2, "initial window scale")
	f.StringVar(&opts.restore, "restore", "", "load machine state from a zip file")
	f.StringVar(&opts.autosave, "autosave", "", "save machine state to this zip file periodically and on exit")
	f.DurationVar(&opts.interval, "autosave-interval", 3*time.Second, "time between autosaves")
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("hackdesktop: ")
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
