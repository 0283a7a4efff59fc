package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/config"
	"github.com/skyduel/beatsynth/engine"
	"github.com/skyduel/beatsynth/gomidi"
	"github.com/skyduel/beatsynth/oto"
	"github.com/skyduel/beatsynth/playback"
	"github.com/skyduel/beatsynth/rpc"
	"github.com/skyduel/beatsynth/sfx"
	"github.com/skyduel/beatsynth/version"
)

type trackInfo struct {
	Path       string
	Track      beatsynth.Track
	LoopLength int
	Seconds    float64
}

const (
	effectStep = 0.1 // seconds rendered between checks for a finished effect
	trackTail  = 1.0 // seconds rendered after the last loop for notes to ring out
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the working directory.")
	play := flag.Bool("p", false, "Play the inputs on the audio device (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered audio as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered audio as .wav file. By default, saves stereo float32 buffer to disk.")
	midiOut := flag.Bool("m", false, "Output the track as a Standard MIDI File.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	effects := flag.Bool("e", false, "Treat the arguments as sound effect names instead of track files.")
	list := flag.Bool("l", false, "List the sound effects and exit.")
	format := flag.String("f", "", "Print information of each track using the given `template`, e.g. '{{.Track.Title | upper}} {{.Track.BPM}}'.")
	configPath := flag.String("config", "", "Read settings from `file` instead of the user config directory.")
	speed := flag.Float64("speed", 0, "Tempo multiplier; overrides the configured speed.")
	loops := flag.Int("loops", 1, "Number of loop passes to play or render; 0 plays until interrupted.")
	syncAddr := flag.String("sync", "", "Publish the beat position to a visualizer listening on `address` while playing.")
	listenAddr := flag.String("listen", "", "Receive beat updates from a player on `address` and print them until interrupted.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if *list {
		listEffects()
		os.Exit(0)
	}
	if *listenAddr != "" {
		os.Exit(receiveBeats(*listenAddr))
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if *speed != 0 {
		cfg.Speed = *speed
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid speed: %v\n", err)
			os.Exit(1)
		}
	}
	var infoTemplate *template.Template
	if *format != "" {
		infoTemplate, err = template.New("info").Funcs(sprig.TxtFuncMap()).Parse(*format + "\n")
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not parse the format template: %v\n", err)
			os.Exit(1)
		}
	}
	render := *rawOut || *wavOut
	if !render && !*midiOut && infoTemplate == nil {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	if !*play && !render && *loops == 0 {
		*loops = 1
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	// Only one device context may exist per process, so live playback shares
	// a single engine.
	var live *engine.Engine
	if *play {
		live = engine.New(cfg.Engine(), func(sampleRate int) (beatsynth.AudioContext, error) {
			c, err := oto.NewContext(oto.Options{SampleRate: sampleRate, BufferSize: cfg.BufferSize()})
			if err != nil {
				return nil, err
			}
			return c, nil
		}, logger)
		if err := live.Initialize(); err != nil {
			stop()
			fmt.Fprintf(os.Stderr, "could not acquire the audio device: %v\n", err)
			os.Exit(1)
		}
		live.Activate()
	}
	var sender *rpc.Sender
	if *syncAddr != "" && *play {
		sender, err = rpc.Dial(*syncAddr, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not connect to the beat sync receiver: %v\n", err)
		}
	}

	output := func(name, extension string, contents []byte) error {
		if *stdout {
			_, err := os.Stdout.Write(contents)
			return err
		}
		dir := *directory
		if dir == "" {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
			}
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
		f := filepath.Join(dir, name+extension)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %v", f, err)
		}
		return nil
	}
	writeAudio := func(name string, buffer beatsynth.AudioBuffer) error {
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(name, ".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(cfg.SampleRate, *pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(name, ".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		return nil
	}

	processTrack := func(filename string) error {
		fetcher := beatsynth.FSFetcher{FS: os.DirFS(filepath.Dir(filename))}
		base := filepath.Base(filename)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		track, err := loadTrack(ctx, fetcher, base, logger)
		if err != nil {
			return err
		}
		info := trackInfo{
			Path:       filename,
			Track:      track,
			LoopLength: track.LoopLength(),
			Seconds:    float64(track.LoopLength()) * track.SecondsPerBeat() / cfg.Speed,
		}
		if infoTemplate != nil {
			if err := infoTemplate.Execute(os.Stdout, info); err != nil {
				return fmt.Errorf("could not execute the format template: %v", err)
			}
		}
		if *midiOut {
			var b bytes.Buffer
			if err := gomidi.WriteSMF(&b, track); err != nil {
				return fmt.Errorf("could not generate .mid file: %v", err)
			}
			if err := output(name, ".mid", b.Bytes()); err != nil {
				return fmt.Errorf("error outputting .mid file: %v", err)
			}
		}
		if render {
			pull, ctrl, err := offline(cfg, fetcher, logger)
			if err != nil {
				return err
			}
			<-ctrl.LoadTrack(ctx, base)
			ctrl.SetSpeed(cfg.Speed)
			ctrl.Play()
			buffer, err := playback.Render(ctrl, pull, float64(max(*loops, 1))*info.Seconds+trackTail, 0)
			ctrl.Cleanup()
			if err != nil {
				return fmt.Errorf("could not render %v: %v", filename, err)
			}
			if err := writeAudio(name, buffer); err != nil {
				return err
			}
		}
		if *play {
			ctrl := playback.New(live, fetcher, logger)
			defer ctrl.Cleanup()
			<-ctrl.LoadTrack(ctx, base)
			ctrl.SetSpeed(cfg.Speed)
			ctrl.Play()
			start := live.CurrentTime()
			seconds := float64(*loops) * info.Seconds
			last := -1
			publish := func() {
				if b := ctrl.CurrentBeat(); sender != nil && ctrl.Playing() && b != last {
					last = b
					sender.Send(rpc.BeatUpdate{Beat: b, Time: live.CurrentTime()})
				}
			}
			tick(ctx, ctrl, cfg.TickInterval(), publish, func() bool {
				return *loops > 0 && live.CurrentTime()-start >= seconds
			})
		}
		return nil
	}

	processEffect := func(arg string) error {
		e, err := sfx.ParseEffect(arg)
		if err != nil {
			return err
		}
		if render {
			pull, ctrl, err := offline(cfg, nil, logger)
			if err != nil {
				return err
			}
			ctrl.PlayEffect(e)
			var buffer beatsynth.AudioBuffer
			for ctrl.ActiveEffects() > 0 {
				b, err := playback.Render(ctrl, pull, effectStep, 0)
				if err != nil {
					return fmt.Errorf("could not render %v: %v", e, err)
				}
				buffer = append(buffer, b...)
			}
			ctrl.Cleanup()
			if err := writeAudio(e.String(), buffer); err != nil {
				return err
			}
		}
		if *play {
			ctrl := playback.New(live, nil, logger)
			defer ctrl.Cleanup()
			ctrl.PlayEffect(e)
			tick(ctx, ctrl, cfg.TickInterval(), nil, func() bool { return ctrl.ActiveEffects() == 0 })
		}
		return nil
	}

	retval := 0
	for _, param := range flag.Args() {
		if ctx.Err() != nil {
			break
		}
		if *effects {
			if err := processEffect(param); err != nil {
				fmt.Fprintf(os.Stderr, "could not process effect %v: %v\n", param, err)
				retval = 1
			}
			continue
		}
		files := []string{param}
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			files = files[:0]
			for _, pattern := range []string{"*.json", "*.yml", "*.yaml", "*.mid"} {
				matches, err := filepath.Glob(filepath.Join(param, pattern))
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not glob the path %v for %v files: %v\n", param, pattern, err)
					retval = 1
					continue
				}
				files = append(files, matches...)
			}
		}
		for _, file := range files {
			if err := processTrack(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	stop()
	if sender != nil {
		sender.Close()
	}
	if live != nil {
		live.Dispose()
	}
	os.Exit(retval)
}

// loadTrack loads the track through a throwaway controller, so that the
// command reads files exactly the way a host would.
func loadTrack(ctx context.Context, fetcher beatsynth.Fetcher, name string, logger *log.Logger) (beatsynth.Track, error) {
	ctrl := playback.New(engine.New(engine.DefaultConfig(), nil, logger), fetcher, logger)
	defer ctrl.Cleanup()
	<-ctrl.LoadTrack(ctx, name)
	ctrl.Update()
	track, ok := ctrl.Track()
	if !ok {
		return beatsynth.Track{}, fmt.Errorf("could not load %v", name)
	}
	return track, nil
}

// offline returns a controller on an activated headless engine.
func offline(cfg config.Config, fetcher beatsynth.Fetcher, logger *log.Logger) (*beatsynth.PullContext, *playback.Controller, error) {
	pull := &beatsynth.PullContext{}
	eng := engine.New(cfg.Engine(), func(int) (beatsynth.AudioContext, error) { return pull, nil }, logger)
	if err := eng.Initialize(); err != nil {
		return nil, nil, err
	}
	eng.Activate()
	return pull, playback.New(eng, fetcher, logger), nil
}

// tick drives the controller until done reports true or ctx is cancelled,
// calling publish after every update.
func tick(ctx context.Context, ctrl *playback.Controller, interval time.Duration, publish func(), done func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ctrl.Update()
			if publish != nil {
				publish()
			}
		}
	}
}

// receiveBeats prints the beat updates sent by another player with -sync.
func receiveBeats(addr string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	receiver, err := rpc.Listen(addr, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not listen for beat updates: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "listening for beat updates on %v\n", receiver.Addr())
	go func() {
		<-ctx.Done()
		receiver.Close()
	}()
	for update := range receiver.C {
		fmt.Printf("beat %d at %.3f s\n", update.Beat, update.Time)
	}
	return 0
}

func listEffects() {
	title := cases.Title(language.English)
	for _, e := range sfx.Effects() {
		bus := "master"
		if e.Percussive() {
			bus = "percussion"
		}
		fmt.Printf("%-24s %-24s %s\n", e, title.String(strings.ReplaceAll(e.String(), "-", " ")), bus)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "beatsynth command line utility for playing and rendering .json/.yml/.mid tracks and sound effects.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
