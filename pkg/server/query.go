package server

import (
	"bufio"
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/perbu/ragchain/pkg/chain"
	"github.com/sirupsen/logrus"
)

const (
	msgNotInitialized = "Vector store not initialized yet."
	msgInternal       = "Internal server error"
)

func (s *Server) handleQuery(c *fiber.Ctx) error {
	start := time.Now()
	req := chain.Request{
		Persona:  c.Query("selectedRag"),
		Question: c.Query("question"),
	}.WithDefaults()
	log := s.logger.WithFields(logrus.Fields{
		"persona":  req.Persona,
		"question": req.Question,
	})

	retriever, err := s.retriever(c.UserContext())
	if err != nil {
		log.WithError(err).Warn("rejecting query, index not available")
		return s.fail(c, msgNotInitialized)
	}

	// The body is written after the handler returns, so generation gets its
	// own context that lives until the stream writer is done.
	ctx, cancel := context.WithCancel(context.Background())

	prepared, err := s.pipeline.Prepare(ctx, retriever, req)
	if err != nil {
		cancel()
		log.WithError(err).Error("failed to prepare prompt")
		return s.fail(c, msgInternal)
	}

	chunks := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(chunks)
		errCh <- s.pipeline.Generate(ctx, prepared, func(chunk string) error {
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	first, ok := <-chunks
	if !ok {
		err := <-errCh
		cancel()
		if err != nil {
			log.WithError(err).Error("generation failed before any output")
			return s.fail(c, msgInternal)
		}
		s.metrics.RequestsTotal.WithLabelValues(strconv.Itoa(fiber.StatusOK)).Inc()
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		c.Status(fiber.StatusOK)
		return nil
	}

	s.metrics.RequestsTotal.WithLabelValues(strconv.Itoa(fiber.StatusOK)).Inc()
	c.Status(fiber.StatusOK)
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		alive := true
		written := 0
		write := func(chunk string) {
			if _, err := w.WriteString(chunk); err != nil {
				alive = false
			} else if err := w.Flush(); err != nil {
				alive = false
			}
			if !alive {
				cancel()
				return
			}
			written++
		}

		write(first)
		for chunk := range chunks {
			if alive {
				write(chunk)
			}
		}

		entry := log.WithFields(logrus.Fields{
			"chunks":   written,
			"duration": time.Since(start).String(),
		})
		switch err := <-errCh; {
		case !alive:
			entry.Info("client went away, generation cancelled")
		case err != nil:
			entry.WithError(err).Error("generation failed mid-stream, response truncated")
		default:
			entry.Info("query served")
		}
	})
	return nil
}

func (s *Server) fail(c *fiber.Ctx, msg string) error {
	s.metrics.RequestsTotal.WithLabelValues(strconv.Itoa(fiber.StatusInternalServerError)).Inc()
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}
