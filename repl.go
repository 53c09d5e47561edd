package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/poly/audio"
)

type env struct {
	inst    *audio.Instrument
	seq     *audio.Sequencer
	devices map[string]audio.Device
}

func (e *env) setProp(device, prop string, v interface{}) error {
	dev, ok := e.devices[device]
	if !ok {
		return fmt.Errorf("unknown device: %s", device)
	}
	return dev.Set(prop, v)
}

func (e *env) getProp(device, prop string) (interface{}, error) {
	dev, ok := e.devices[device]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", device)
	}
	return dev.Get(prop)
}

func (e *env) eval(input string) (string, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", nil
	}
	name, args := fields[0], fields[1:]
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(args) < arity {
				return "", fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					cmd.name, arity, len(args))
			}
		} else if len(args) != cmd.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(args))
		}
		result, err := cmd.run(e, args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

func repl(env *env) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if result, err := env.eval(line); err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}

type command struct {
	name  string
	run   func(*env, []string) (string, error)
	arity int // -n means len(args) must be >= n
	help  string
}

var commands []command

func init() {
	commands = []command{
		{"on", onCommand, -1, "on <note> [velocity]: start a note, velocity 0-1"},
		{"off", offCommand, -1, "off <note> [cut]: release a note, or stop it at once with cut"},
		{"panic", panicCommand, 0, "panic: silence every voice"},
		{"set", setCommand, 3, "set <device> <prop> <value>: change a parameter"},
		{"get", getCommand, 2, "get <device> <prop>: show a parameter"},
		{"props", propsCommand, 1, "props <device>: list the parameters of a device"},
		{"voices", voicesCommand, 0, "voices: show voice usage"},
		{"loop", loopCommand, 2, "loop <name> <file.mid>: loop a MIDI file"},
		{"unloop", unloopCommand, 1, "unloop <name>: stop a loop"},
		{"save", saveCommand, 1, "save <file>: save synth parameters"},
		{"load", loadCommand, 1, "load <file>: load synth parameters"},
		{"preset", presetCommand, 1, "preset <name>: apply a named synth preset (" + strings.Join(audio.PresetNames(), ", ") + ")"},
		{"help", helpCommand, 0, "help: list commands"},
	}
}

func onCommand(env *env, args []string) (string, error) {
	note, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid note %q", args[0])
	}
	velocity := 1.0
	if len(args) > 1 {
		if velocity, err = strconv.ParseFloat(args[1], 64); err != nil {
			return "", fmt.Errorf("invalid velocity %q", args[1])
		}
	}
	env.inst.NoteOn(note, velocity)
	return "", nil
}

func offCommand(env *env, args []string) (string, error) {
	note, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid note %q", args[0])
	}
	tailOff := true
	if len(args) > 1 {
		if args[1] != "cut" {
			return "", fmt.Errorf("unexpected argument %q", args[1])
		}
		tailOff = false
	}
	env.inst.NoteOff(note, tailOff)
	return "", nil
}

func panicCommand(env *env, args []string) (string, error) {
	env.inst.AllNotesOff(false)
	return "", nil
}

func setCommand(env *env, args []string) (string, error) {
	device, prop, raw := args[0], args[1], args[2]
	var v interface{} = raw
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v = f
	}
	return "", env.setProp(device, prop, v)
}

func getCommand(env *env, args []string) (string, error) {
	v, err := env.getProp(args[0], args[1])
	if err != nil {
		return "", err
	}
	if clips, ok := v.(map[string]*audio.Clip); ok {
		names := make([]string, 0, len(clips))
		for name := range clips {
			names = append(names, name)
		}
		sort.Strings(names)
		return strings.Join(names, " "), nil
	}
	return fmt.Sprint(v), nil
}

func propsCommand(env *env, args []string) (string, error) {
	dev, ok := env.devices[args[0]]
	if !ok {
		return "", fmt.Errorf("unknown device: %s", args[0])
	}
	return strings.Join(dev.Keys(), " "), nil
}

func voicesCommand(env *env, args []string) (string, error) {
	pool := env.inst.Synth().Pool()
	return fmt.Sprintf("%d/%d active, %d dropped", pool.Active(), pool.Size(), pool.Dropped()), nil
}

func loopCommand(env *env, args []string) (string, error) {
	name, path := args[0], args[1]
	f, err := audio.LoadMIDIFile(path, env.inst, true)
	if err != nil {
		return "", err
	}
	return "", env.updateClips(func(clips map[string]*audio.Clip) {
		clips[name] = f.Clip
	})
}

func unloopCommand(env *env, args []string) (string, error) {
	name := args[0]
	if _, ok := env.seq.Clips()[name]; !ok {
		return "", fmt.Errorf("no loop named %s", name)
	}
	return "", env.updateClips(func(clips map[string]*audio.Clip) {
		delete(clips, name)
	})
}

// updateClips applies f to a copy of the clip set so the audio thread never
// sees a map being modified.
func (e *env) updateClips(f func(map[string]*audio.Clip)) error {
	old := e.seq.Clips()
	clips := make(map[string]*audio.Clip, len(old)+1)
	for k, v := range old {
		clips[k] = v
	}
	f(clips)
	return e.seq.Set(audio.PropClips, clips)
}

func saveCommand(env *env, args []string) (string, error) {
	f, err := os.Create(args[0])
	if err != nil {
		return "", err
	}
	if err := audio.SaveState(f, env.devices[deviceSynth]); err != nil {
		f.Close()
		return "", err
	}
	return "", f.Close()
}

func loadCommand(env *env, args []string) (string, error) {
	f, err := os.Open(args[0])
	if err != nil {
		return "", err
	}
	defer f.Close()
	return "", audio.LoadState(f, env.devices[deviceSynth])
}

func presetCommand(env *env, args []string) (string, error) {
	return "", audio.LoadPreset(args[0], env.devices[deviceSynth])
}

func helpCommand(env *env, args []string) (string, error) {
	lines := make([]string, len(commands))
	for n, cmd := range commands {
		lines[n] = cmd.help
	}
	return strings.Join(lines, "\n"), nil
}
