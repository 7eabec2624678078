// Package workers runs background image processing off the upload path so
// requests return before thumbnails and hashes exist.
package workers

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/camden-git/photoframebackend/media"
)

// TaskType constants
const (
	TaskThumbnail = "thumbnail"
	TaskPHash     = "phash"
)

type ImageJob struct {
	// OriginalImagePath is the absolute path of the stored original.
	OriginalImagePath string
	// Filename is the catalog identifier for the image.
	Filename string
	TaskType string
}

// HashSink receives computed perceptual hashes. A sink that no longer knows
// the filename treats the result as a no-op.
type HashSink interface {
	SetImageHash(filename string, hash uint64) error
}

type ImageProcessor struct {
	JobQueue  chan ImageJob
	Thumbs    *media.Processor
	Hashes    HashSink
	ThumbSize int
	Wg        sync.WaitGroup
	StopChan  chan struct{}
	Pending   map[string]bool
	Mutex     sync.Mutex
}

func NewImageProcessor(thumbs *media.Processor, hashes HashSink, thumbSize, queueSize, numWorkers int) *ImageProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &ImageProcessor{
		JobQueue:  make(chan ImageJob, queueSize),
		Thumbs:    thumbs,
		Hashes:    hashes,
		ThumbSize: thumbSize,
		StopChan:  make(chan struct{}),
		Pending:   make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d image processing worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (ip *ImageProcessor) worker(id int) {
	defer ip.Wg.Done()

	log.Printf("Image worker %d started", id)
	for {
		select {
		case job, ok := <-ip.JobQueue:
			if !ok {
				log.Printf("Image worker %d stopping: Job queue closed", id)
				return
			}

			pendingKey := fmt.Sprintf("%s:%s", job.Filename, job.TaskType)
			log.Printf("Worker %d: Received job type '%s' for: %s", id, job.TaskType, job.Filename)

			switch job.TaskType {
			case TaskThumbnail:
				ip.processThumbnailTask(job)
			case TaskPHash:
				ip.processPHashTask(job)
			default:
				log.Printf("Worker %d: ERROR unknown task type '%s' for %s", id, job.TaskType, job.Filename)
			}

			ip.Mutex.Lock()
			delete(ip.Pending, pendingKey)
			ip.Mutex.Unlock()

		case <-ip.StopChan:
			log.Printf("Image worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (ip *ImageProcessor) processThumbnailTask(job ImageJob) {
	if _, statErr := os.Stat(job.OriginalImagePath); os.IsNotExist(statErr) {
		log.Printf("Worker: Skipping thumbnail task for %s: original file not found", job.Filename)
		return
	} else if statErr != nil {
		log.Printf("Worker: ERROR stating file for thumbnail task %s: %v", job.Filename, statErr)
		return
	}

	img, err := imaging.Open(job.OriginalImagePath, imaging.AutoOrientation(true))
	if err != nil {
		log.Printf("Worker: ERROR opening %s for thumbnail: %v", job.Filename, err)
		return
	}

	if _, err := ip.Thumbs.GenerateThumbnail(img, job.Filename, ip.ThumbSize); err != nil {
		log.Printf("Worker: ERROR generating thumbnail for %s: %v", job.Filename, err)
		return
	}
	log.Printf("Worker: Generated thumbnail for %s", job.Filename)
}

func (ip *ImageProcessor) processPHashTask(job ImageJob) {
	if _, statErr := os.Stat(job.OriginalImagePath); os.IsNotExist(statErr) {
		log.Printf("Worker: Skipping phash task for %s: original file not found", job.Filename)
		return
	} else if statErr != nil {
		log.Printf("Worker: ERROR stating file for phash task %s: %v", job.Filename, statErr)
		return
	}

	hash, err := media.ComputePHash(job.OriginalImagePath)
	if err != nil {
		log.Printf("Worker: ERROR computing phash for %s: %v", job.Filename, err)
		return
	}
	if err := ip.Hashes.SetImageHash(job.Filename, hash); err != nil {
		log.Printf("Worker: ERROR storing phash for %s: %v", job.Filename, err)
		return
	}
	log.Printf("Worker: Computed phash for %s", job.Filename)
}

// QueueJob queues a specific task if not already pending
func (ip *ImageProcessor) QueueJob(job ImageJob) bool {
	// use composite key: "filename:taskType"
	pendingKey := fmt.Sprintf("%s:%s", job.Filename, job.TaskType)

	ip.Mutex.Lock()
	if ip.Pending[pendingKey] {
		ip.Mutex.Unlock()
		return false
	}

	ip.Pending[pendingKey] = true
	ip.Mutex.Unlock()

	select {
	case ip.JobQueue <- job:
		log.Printf("Queued task '%s' for: %s", job.TaskType, job.Filename)
		return true
	default:
		log.Printf("WARNING: Image processing job queue full. Failed to queue task '%s' for: %s", job.TaskType, job.Filename)
		ip.Mutex.Lock()
		delete(ip.Pending, pendingKey)
		ip.Mutex.Unlock()
		return false
	}
}

// QueueAll queues every task type for a freshly stored original.
func (ip *ImageProcessor) QueueAll(originalPath, filename string) {
	for _, task := range []string{TaskThumbnail, TaskPHash} {
		ip.QueueJob(ImageJob{OriginalImagePath: originalPath, Filename: filename, TaskType: task})
	}
}

func (ip *ImageProcessor) Stop() {
	log.Println("Stopping image processor workers...")
	close(ip.StopChan)
	ip.Wg.Wait()
	log.Println("All image processor workers stopped")
}
