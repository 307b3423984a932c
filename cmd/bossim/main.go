// Command bossim boots the kernel core inside a regular Linux process. The
// physical memory is an anonymous memory mapping, interrupts are raised by
// goroutines that synthesize key presses and all decoded keystrokes are
// printed to stdout.
//
// Usage:
//
//	bossim [-mem MiB] [-cmdline "kbdqueue=100 memmap"] [-type text] [-kbd-file path] [-timeout d]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"bos/kernel"
	"bos/kernel/kfmt"
	"bos/kernel/kmain"
	"bos/kernel/mm/heap"
	"bos/kernel/task"
	"bos/multiboot"
)

type options struct {
	memMiB   uint
	cmdLine  string
	typeText string
	kbdFile  string
	keyDelay time.Duration
	timeout  time.Duration
}

func main() {
	var opts options
	flag.UintVar(&opts.memMiB, "mem", 16, "size of the simulated physical memory in MiB")
	flag.StringVar(&opts.cmdLine, "cmdline", "memmap", "kernel command line")
	flag.StringVar(&opts.typeText, "type", "", "text to type on the simulated keyboard after boot")
	flag.StringVar(&opts.kbdFile, "kbd-file", "", "type any text appended to this file")
	flag.DurationVar(&opts.keyDelay, "key-delay", 20*time.Millisecond, "delay between simulated key presses")
	flag.DurationVar(&opts.timeout, "timeout", 0, "shut down after this long (0 runs until interrupted)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	kfmt.SetOutputSink(os.Stdout)

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "bossim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	m, err := newMachine(opts.memMiB << 20)
	if err != nil {
		return err
	}
	defer m.close()

	if kerr := heap.Init(m.mapper, m.alloc); kerr != nil {
		return kernelError(kerr)
	}

	cfg, kerr := kmain.ParseConfig(multiboot.ParseCmdLine(opts.cmdLine))
	if kerr != nil {
		return kernelError(kerr)
	}

	halter := task.NewChanHalter()
	exec, kerr := kmain.Boot(cfg, m.alloc, halter, nil)
	if kerr != nil {
		return kernelError(kerr)
	}

	kbd := &keyboardDevice{halter: halter, keyDelay: opts.keyDelay}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		exec.Run()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		exec.Stop()
		return nil
	})

	if opts.typeText != "" {
		g.Go(func() error {
			return kbd.typeString(gctx, opts.typeText)
		})
	}

	if opts.kbdFile != "" {
		g.Go(func() error {
			return watchKbdFile(gctx, opts.kbdFile, kbd)
		})
	}

	err = g.Wait()
	kfmt.Printf("\n[bossim] shutting down; allocated frames: %d\n", m.alloc.AllocCount())
	return err
}

func kernelError(err *kernel.Error) error {
	return fmt.Errorf("[%s] %s", err.Module, err.Message)
}
