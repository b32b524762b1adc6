package main

import (
	"bytes"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"amber/emu"
	"amber/hw/snapshot"
)

// runMain runs the machine headless with the probe core.
func runMain(args Run) {
	cfg := emu.LoadConfigOrDefault()

	e, err := emu.Launch(cfg)
	checkf(err, "failed to configure machine")
	e.SetTurbo(args.Turbo)

	if args.StateIn != "" {
		checkf(e.LoadStateFile(args.StateIn), "failed to restore state")
	}

	e.Run(args.Frames)
	fmt.Printf("ran %d frames, probe checksum %08x\n", e.Machine.Frame(), e.Probe.Checksum())

	if args.StateOut != "" {
		checkf(e.SaveStateFile(args.StateOut), "failed to save state")
		fmt.Println("state written to", args.StateOut)
	}
}

// verifyMain runs identical machines concurrently and compares their final
// snapshots. Any divergence is a determinism bug in the timing core.
func verifyMain(args Verify) {
	cfg := emu.LoadConfigOrDefault()
	if args.Replicas < 2 {
		fatalf("need at least 2 replicas, got %d", args.Replicas)
	}

	blobs := make([][]byte, args.Replicas)
	var g errgroup.Group
	for i := range args.Replicas {
		g.Go(func() error {
			e, err := emu.Launch(cfg)
			if err != nil {
				return err
			}
			e.SetTurbo(0)
			e.Run(args.Frames)
			blobs[i] = e.Machine.SaveSnapshot()
			return nil
		})
	}
	checkf(g.Wait(), "verify run failed")

	for i := 1; i < args.Replicas; i++ {
		if bytes.Equal(blobs[i], blobs[0]) {
			continue
		}
		ref, err := snapshot.Decode(blobs[0])
		checkf(err, "failed to decode reference snapshot")
		got, err := snapshot.Decode(blobs[i])
		checkf(err, "failed to decode replica snapshot")
		fatalf("replica %d diverged from replica 0 after %d frames:\n%s",
			i, args.Frames, cmp.Diff(ref, got))
	}
	fmt.Printf("%d replicas, %d frames: all snapshots identical (%d bytes)\n",
		args.Replicas, args.Frames, len(blobs[0]))
}
