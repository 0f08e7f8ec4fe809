// Package imstest builds IMS-shaped fixtures for tests: real HDF5
// containers on disk and an in-memory Store implementation.
package imstest

import (
	"fmt"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"

	"ims2tif/internal/models"
)

// WriteStack writes a minimal single-channel IMS container holding stack
// under the conventional DataSet/ResolutionLevel 0/TimePoint 0/Channel 0
// hierarchy.
func WriteStack(t *testing.T, path string, stack [][][]uint16) {
	t.Helper()
	WriteChannels(t, path, [][][][]uint16{stack})
}

// WriteChannels writes one IMS container with the given channels under a
// single resolution level and timepoint.
func WriteChannels(t *testing.T, path string, channels [][][][]uint16) {
	t.Helper()

	f, err := hdf5.Create(path)
	if err != nil {
		t.Fatalf("creating fixture %s: %v", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			t.Fatalf("closing fixture %s: %v", path, err)
		}
	}()

	dataset, err := f.Root().CreateGroup("DataSet")
	if err != nil {
		t.Fatalf("creating DataSet group: %v", err)
	}
	res, err := dataset.CreateGroup("ResolutionLevel 0")
	if err != nil {
		t.Fatalf("creating resolution group: %v", err)
	}
	tp, err := res.CreateGroup("TimePoint 0")
	if err != nil {
		t.Fatalf("creating timepoint group: %v", err)
	}
	for i, stack := range channels {
		ch, err := tp.CreateGroup(fmt.Sprintf("Channel %d", i))
		if err != nil {
			t.Fatalf("creating channel group %d: %v", i, err)
		}
		if _, err := ch.CreateDataset("Data", stack); err != nil {
			t.Fatalf("writing channel %d data: %v", i, err)
		}
	}
}

// Stack builds a depth×height×width nested slice where every sample of
// plane z has the value given by planeValue.
func Stack(depth, height, width int, planeValue func(z int) uint16) [][][]uint16 {
	stack := make([][][]uint16, depth)
	for z := range stack {
		stack[z] = make([][]uint16, height)
		for y := range stack[z] {
			row := make([]uint16, width)
			for x := range row {
				row[x] = planeValue(z)
			}
			stack[z][y] = row
		}
	}
	return stack
}

// Image builds a models.Image from a nested uint16 stack.
func Image(stack [][][]uint16) *models.Image {
	depth := len(stack)
	height := len(stack[0])
	width := len(stack[0][0])
	img := &models.Image{
		Shape: []int{depth, height, width},
		Dtype: models.Uint16,
		Data:  make([]byte, 0, depth*height*width*2),
	}
	for _, plane := range stack {
		for _, row := range plane {
			for _, v := range row {
				img.Data = append(img.Data, byte(v), byte(v>>8))
			}
		}
	}
	return img
}
