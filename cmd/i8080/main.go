package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sofiane-h/i8080/internal/asm"
	"github.com/sofiane-h/i8080/internal/cpu"
	"github.com/sofiane-h/i8080/internal/device"
	"github.com/sofiane-h/i8080/internal/disasm"
	"github.com/sofiane-h/i8080/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "i8080",
		Short: "Intel 8080 assembler, disassembler and emulator",
	}

	rootCmd.AddCommand(newAsmCmd(), newDisCmd(), newRunCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newAsmCmd() *cobra.Command {
	var output string
	var loadAt string
	var hlt bool
	var registerDefinitions bool

	cmd := &cobra.Command{
		Use:   "asm INPUT",
		Short: "Assemble 8080 source into a flat binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseNumber(loadAt)
			if err != nil {
				return fmt.Errorf("invalid --load-at: %w", err)
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			a := asm.New(asm.Options{
				LoadAt:              addr,
				AppendHLT:           hlt,
				RegisterDefinitions: registerDefinitions,
			})
			bytes, err := a.Assemble(string(source))
			if err != nil {
				return fmt.Errorf("assembly failed: %w", err)
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".asm") + ".bin"
			}
			if err := os.WriteFile(output, bytes, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %d bytes to %s\n", len(bytes), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Output file path (default: INPUT with .bin extension)")
	cmd.Flags().StringVar(&loadAt, "load-at", "0", "Address the first byte is assembled at")
	cmd.Flags().BoolVar(&hlt, "hlt", false, "Append an HLT instruction after the program")
	cmd.Flags().BoolVar(&registerDefinitions, "register-definitions", false, "Predefine B..A as register-name labels (they are predefined with or without this flag)")
	return cmd
}

func newDisCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dis INPUT",
		Short: "Disassemble a flat binary image into 8080 assembly text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			lines, err := disasm.All(data)
			if err != nil {
				return fmt.Errorf("disassembly failed: %w", err)
			}
			text := strings.Join(lines, "\n") + "\n"

			if output == "" {
				fmt.Print(text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %d lines to %s\n", len(lines), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Output file path (default: stdout)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var loadAt string
	var randomize bool
	var interactive bool
	var assemble bool
	var noConsole bool
	var emulateClockSpeed bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Load and execute an 8080 binary image (or assemble it first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseNumber(loadAt)
			if err != nil {
				return fmt.Errorf("invalid --load-at: %w", err)
			}

			var program []byte
			if assemble {
				source, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", args[0], err)
				}
				a := asm.New(asm.Options{LoadAt: addr, AppendHLT: true, RegisterDefinitions: true})
				program, err = a.Assemble(string(source))
				if err != nil {
					return fmt.Errorf("assembly failed: %w", err)
				}
			} else {
				program, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", args[0], err)
				}
			}

			// Randomize, if requested, happens before the program is
			// loaded - matching the reference's randomize()-then-load()
			// ordering, so the random fill never clobbers the image.
			mem := cpu.NewMemory(nil, 0)
			bus := device.NewBus()

			var wg *sync.WaitGroup
			var consoleResult <-chan string
			if !noConsole {
				ch := device.NewChannel(256, device.EOT)
				bus.Out[1] = ch
				console := &device.ConsoleDevice{Ch: ch, Writer: os.Stdout}
				wg, consoleResult = device.RunConsoleWorker(console)
			}

			// Execution always starts at PC 0 regardless of --load-at,
			// matching the reference: load() only copies bytes into
			// memory and never touches PC, so a non-zero load address
			// expects the image at 0 to jump to it.
			s := cpu.NewState(mem, bus)
			s.Log = logging.Default(logging.ParseLevel(logLevel))
			if randomize {
				s.Randomize()
			}
			copy(s.Mem.Bytes[addr:], program)

			if interactive {
				s.Interactive = true
				runInteractive(s)
				s.Halted = true
				bus.HaltAll()
			} else {
				s.Run(emulateClockSpeed)
			}

			if wg != nil {
				wg.Wait()
				fmt.Print(<-consoleResult)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&loadAt, "load-at", "0", "Address the program is loaded at")
	cmd.Flags().BoolVar(&randomize, "randomize", false, "Fill registers, flags and memory with random bytes before loading")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Drop into the interactive cycle/debug prompt")
	cmd.Flags().BoolVar(&assemble, "assemble", false, "Treat FILE as assembly source and assemble it first")
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "Do not attach the console device to port 1")
	cmd.Flags().BoolVar(&emulateClockSpeed, "emulate-clock-speed", false, "Throttle execution to roughly 2MHz")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "error|warn|info|debug|trace")
	return cmd
}

const interactiveHelp = `h | ? | help)        show this information
q | quit | e | exit) exit the prompt
c | cycle)           cycle the cpu

i | int | interrupt) issue interrupt
    u8: op code

d | dis | disassemble) disassemble next instruction
    u16: address [default: PC]

m | mem | memory) print values in memory
    u16: n bytes [default: 1]
    u16: address [default: PC]`

// runInteractive is the debugger's cycle/inspect REPL. Unlike the
// reference's rustyline-backed prompt (history, vi keybindings), this
// reads one line at a time with bufio - the toolchain's explicit
// non-goals exclude a line editor, not a debug loop.
func runInteractive(s *cpu.State) {
	scanner := bufio.NewScanner(os.Stdin)
	cycling := false

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("Exiting...")
			return
		}
		fields := strings.Fields(scanner.Text())
		cmd := ""
		if len(fields) > 0 {
			cmd = strings.ToLower(fields[0])
		}
		fields = fields[min(1, len(fields)):]

		if cmd != "c" && cmd != "cycle" && cmd != "" {
			cycling = false
		}

		switch cmd {
		case "h", "?", "help":
			fmt.Println(interactiveHelp)
		case "c", "cycle":
			cycling = true
			if !promptCycle(s) {
				return
			}
		case "s", "sys", "system":
			fmt.Println(s.DescribeSystem())
		case "i", "int", "interrupt":
			if len(fields) != 1 {
				fmt.Println("Interrupt takes one arg")
				continue
			}
			v, err := parseNumber(fields[0])
			if err != nil {
				fmt.Printf("Couldn't parse arg\n%v\n", err)
				continue
			}
			s.IssueInterrupt(byte(v))
			fmt.Printf("Interrupt issued, instruction %#04x\n", v)
		case "m", "mem", "memory":
			if len(fields) > 2 {
				fmt.Printf("Up to two args required: %v\n", fields)
				continue
			}
			n := uint16(1)
			if len(fields) > 0 {
				v, err := parseNumber(fields[0])
				if err != nil {
					fmt.Printf("Couldn't parse arg\n%v\n", err)
					continue
				}
				n = v
			}
			addr := s.PC
			if len(fields) > 1 {
				v, err := parseNumber(fields[1])
				if err != nil {
					fmt.Printf("Couldn't parse arg\n%v\n", err)
					continue
				}
				addr = v
			}
			fmt.Printf("%#06x %02x\n", addr, memSlice(s, addr, n))
		case "d", "dis", "disassemble":
			if len(fields) > 1 {
				fmt.Printf("Zero or one args required: %v\n", fields)
				continue
			}
			addr := s.PC
			if len(fields) > 0 {
				v, err := parseNumber(fields[0])
				if err != nil {
					fmt.Printf("Couldn't parse arg\n%v\n", err)
					continue
				}
				addr = v
			}
			text, _, err := disasm.Instruction(memSlice(s, addr, 3), 0)
			if err != nil {
				fmt.Printf("Couldn't parse arg\n%v\n", err)
				continue
			}
			fmt.Println(text)
		case "q", "quit", "e", "exit":
			return
		case "":
			if cycling {
				if !promptCycle(s) {
					return
				}
			}
		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

func promptCycle(s *cpu.State) bool {
	if s.Halted {
		fmt.Println("CPU previously halted, breaking")
		return false
	}
	s.Step()
	fmt.Println(s.CurrentState)
	return true
}

func memSlice(s *cpu.State, addr uint16, n uint16) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = s.Mem.ReadByte(addr + uint16(i))
	}
	return out
}

// parseNumber accepts 0x/0b/0o-radix and bare-decimal forms, the
// reference interactive prompt's own parse_number grammar.
func parseNumber(s string) (uint16, error) {
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	case strings.HasPrefix(s, "0o"):
		base, s = 8, s[2:]
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
