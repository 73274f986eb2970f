package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"productory/pkg/api"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:     "submit",
	Aliases: []string{"transcribe"},
	Short:   "Queue a transcription or summary job",
	Long: `Queue a job for an uploaded audio file.

--upload sends a local file first and uses the generated name as the file id.
The transcription id defaults to the file id without its extension.

Example:
  sttctl submit --upload ./meeting.mp3 --language en --timestamps --wait
  sttctl submit --file-id meeting_2024-01-15T10-30-00-000Z_ab12cd.mp3 --priority 75
  sttctl submit --type ai_summary --file-id meeting.mp3 --transcription-id tr-1 --style bullets`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		jobType, _ := flags.GetString("type")
		upload, _ := flags.GetString("upload")
		fileID, _ := flags.GetString("file-id")
		transcriptionID, _ := flags.GetString("transcription-id")
		priority, _ := flags.GetInt("priority")
		maxAttempts, _ := flags.GetInt("max-attempts")
		wait, _ := flags.GetBool("wait")

		client, ok := newClient(cmd)
		if !ok {
			return
		}

		if jobType != "transcription" && jobType != "ai_summary" {
			cmd.Println("Error: --type must be transcription or ai_summary")
			return
		}

		if upload != "" {
			file, err := client.UploadFile(upload)
			if err != nil {
				printAPIError(cmd, "Upload", err)
				return
			}
			cmd.Printf("✓ Uploaded %s as %s\n", upload, file.Path)
			fileID = file.Name
		}

		if fileID == "" {
			cmd.Println("Error: --file-id or --upload is required")
			return
		}
		if transcriptionID == "" {
			transcriptionID = trimExt(fileID)
		}

		if priority < api.PriorityMin || priority > api.PriorityMax {
			cmd.Printf("Error: --priority must be between %d and %d\n", api.PriorityMin, api.PriorityMax)
			return
		}

		payload, err := buildPayload(cmd, jobType, fileID, transcriptionID)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		created, err := client.CreateJob(api.CreateJobRequest{
			JobType:     jobType,
			Payload:     payload,
			Priority:    priority,
			MaxAttempts: maxAttempts,
		})
		if err != nil {
			printAPIError(cmd, "Submit", err)
			return
		}

		cmd.Printf("✓ Job submitted!\nJob ID: %s\nStatus: %s\n", created.JobID, created.Status)

		if !wait {
			return
		}
		for {
			time.Sleep(pollInterval)
			job, err := client.GetJob(created.JobID)
			if err != nil {
				printAPIError(cmd, "Status", err)
				return
			}
			if isTerminal(job.Status) {
				printStatus(cmd, *job)
				return
			}
		}
	},
}

func buildPayload(cmd *cobra.Command, jobType, fileID, transcriptionID string) (json.RawMessage, error) {
	flags := cmd.Flags()

	var payload interface{}
	switch jobType {
	case "transcription":
		language, _ := flags.GetString("language")
		model, _ := flags.GetString("model")
		timestamps, _ := flags.GetBool("timestamps")
		payload = map[string]interface{}{
			"fileId":          fileID,
			"transcriptionId": transcriptionID,
			"options": map[string]interface{}{
				"language":   language,
				"model":      model,
				"timestamps": timestamps,
			},
		}
	case "ai_summary":
		style, _ := flags.GetString("style")
		maxLength, _ := flags.GetInt("max-length")
		payload = map[string]interface{}{
			"fileId":          fileID,
			"transcriptionId": transcriptionID,
			"options": map[string]interface{}{
				"style":     style,
				"maxLength": maxLength,
			},
		}
	default:
		return nil, fmt.Errorf("unsupported job type %q", jobType)
	}
	return json.Marshal(payload)
}

func trimExt(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

func init() {
	flags := submitCmd.Flags()
	flags.String("type", "transcription", "Job type: transcription or ai_summary")
	flags.StringP("upload", "u", "", "Local audio file to upload before submitting")
	flags.StringP("file-id", "f", "", "Uploaded file name or storage path")
	flags.String("transcription-id", "", "Transcription id (default: file id without extension)")
	flags.IntP("priority", "p", api.PriorityNormal, "Priority (0-100, higher runs first)")
	flags.Int("max-attempts", 0, "Attempts before the job fails (default: server default)")
	flags.String("language", "", "Spoken language hint, e.g. en")
	flags.String("model", "", "Provider model name")
	flags.Bool("timestamps", false, "Request word timestamps")
	flags.String("style", "", "Summary style")
	flags.Int("max-length", 0, "Maximum summary length")
	flags.BoolP("wait", "w", false, "Poll until the job completes or fails")

	rootCmd.AddCommand(submitCmd)
}
