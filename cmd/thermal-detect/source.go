package main

import (
	"context"
	"strconv"
	"time"

	"github.com/nvr-ai/go-thermal/controller"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// captureSource reads frames from an OpenCV capture: a device index, a
// video file or a stream URL.
type captureSource struct {
	target string
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	id     int
}

func openCapture(target string) (*captureSource, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if deviceID, convErr := strconv.Atoi(target); convErr == nil {
		vc, err = gocv.OpenVideoCapture(deviceID)
	} else {
		vc, err = gocv.OpenVideoCapture(target)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening capture %s", target)
	}
	// Keep only the newest frame for live sources.
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	return &captureSource{target: target, vc: vc, mat: gocv.NewMat()}, nil
}

func (s *captureSource) Next(ctx context.Context) (controller.Frame, error) {
	if err := ctx.Err(); err != nil {
		return controller.Frame{}, err
	}
	if ok := s.vc.Read(&s.mat); !ok {
		return controller.Frame{}, controller.ErrSourceClosed
	}
	if s.mat.Empty() {
		return controller.Frame{}, controller.ErrNoFrame
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return controller.Frame{}, errors.Wrap(err, "converting frame")
	}
	s.id++
	return controller.Frame{ID: s.id, Image: img, Timestamp: time.Now()}, nil
}

func (s *captureSource) Close() {
	s.mat.Close()
	s.vc.Close()
}
