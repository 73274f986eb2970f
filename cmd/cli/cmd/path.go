package cmd

import (
	"errors"

	"productory/internal/storagepath"

	"github.com/spf13/cobra"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Compute storage paths locally",
	Long: `Compute the canonical storage paths and URLs the service uses, without calling it.

Example:
  sttctl path audio user-123 meeting.mp3
  sttctl path transcription user-123 meeting.mp3
  sttctl path parse /audio/user-123/meeting.mp3
  sttctl path filename "My Meeting.mp3"
  sttctl path urls audio/user-123/meeting.mp3 --base-url https://project.example.co`,
}

// pathUtil builds a storagepath.Util from the path flags.
func pathUtil(cmd *cobra.Command) (*storagepath.Util, error) {
	flags := cmd.Flags()
	bucket, _ := flags.GetString("bucket")
	baseURL, _ := flags.GetString("base-url")
	prefix, _ := flags.GetString("prefix")

	return storagepath.New(storagepath.Config{
		DefaultBucket:   bucket,
		BaseURL:         baseURL,
		AudioPathPrefix: prefix,
	}, nil)
}

// runPath wraps a storagepath computation with consistent error output.
func runPath(fn func(u *storagepath.Util, args []string) error) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		u, err := pathUtil(cmd)
		if err == nil {
			err = fn(u, args)
		}
		if err == nil {
			return
		}

		var se *storagepath.Error
		if errors.As(err, &se) {
			cmd.Printf("Error [%s]: %s\n", se.Code, storagepath.UserFriendlyErrorMessage(err))
			return
		}
		cmd.Printf("Error: %v\n", err)
	}
}

func newPathCmd(use, short string, nargs int, fn func(cmd *cobra.Command, u *storagepath.Util, args []string) error) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
	}
	c.Run = runPath(func(u *storagepath.Util, args []string) error {
		return fn(c, u, args)
	})
	return c
}

func init() {
	audio := newPathCmd("audio [user_id] [file_name]", "Print the audio object path", 2,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			p, err := u.AudioPath(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Println(p)
			return nil
		})

	transcription := newPathCmd("transcription [user_id] [file_name]", "Print the transcription audio path", 2,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			p, err := u.TranscriptionPath(args[0], args[1])
			if err != nil {
				return err
			}
			cmd.Println(p)
			return nil
		})

	parse := newPathCmd("parse [path]", "Split a path into prefix, user and file", 1,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			cp, err := u.ParseFilePath(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Prefix:   %s\nUser:     %s\nFile:     %s\nStandard: %t\n",
				cp.Prefix, cp.UserID, cp.FileName, u.IsStandardPath(args[0]))
			return nil
		})

	normalize := newPathCmd("normalize [path]", "Normalize a path to prefix/user/file", 1,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			p, err := u.NormalizePath(args[0])
			if err != nil {
				return err
			}
			cmd.Println(p)
			return nil
		})

	filename := newPathCmd("filename [original]", "Generate an upload file name", 1,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			name, err := u.GenerateFormattedFilename(args[0])
			if err != nil {
				return err
			}
			cmd.Println(name)
			return nil
		})

	urls := newPathCmd("urls [path]", "Print storage path and URLs for an object path", 1,
		func(cmd *cobra.Command, u *storagepath.Util, args []string) error {
			full, err := u.FullStoragePath(args[0], "")
			if err != nil {
				return err
			}
			public, err := u.PublicURL(args[0], "")
			if err != nil {
				return err
			}
			download, err := u.DownloadURL(args[0], "")
			if err != nil {
				return err
			}
			cmd.Printf("Storage:  %s\nPublic:   %s\nDownload: %s\n", full, public, download)
			return nil
		})

	pathCmd.AddCommand(audio, transcription, parse, normalize, filename, urls)

	flags := pathCmd.PersistentFlags()
	flags.String("bucket", "audio-files", "Storage bucket")
	flags.String("base-url", "http://localhost:9000", "Storage base URL")
	flags.String("prefix", storagepath.DefaultAudioPathPrefix, "Audio path prefix")

	rootCmd.AddCommand(pathCmd)
}
