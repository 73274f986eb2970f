package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded audio files",
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload [path]",
	Short: "Upload a local audio file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := newClient(cmd)
		if !ok {
			return
		}

		file, err := client.UploadFile(args[0])
		if err != nil {
			printAPIError(cmd, "Upload", err)
			return
		}

		cmd.Printf("✓ File uploaded!\nName: %s\nPath: %s\nTranscription: %s\n", file.Name, file.Path, file.TranscriptionPath)
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your uploaded files",
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := newClient(cmd)
		if !ok {
			return
		}

		files, err := client.ListFiles()
		if err != nil {
			printAPIError(cmd, "List", err)
			return
		}

		if len(files) == 0 {
			cmd.Println("No files found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tUPLOADED")
		for _, f := range files {
			fmt.Fprintf(w, "%s\t%d\t%s ago\n", f.Name, f.Size, relativeTime(f.UploadedAt))
		}
		w.Flush()
	},
}

var filesURLsCmd = &cobra.Command{
	Use:   "urls [name]",
	Short: "Show storage paths and URLs for a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := newClient(cmd)
		if !ok {
			return
		}

		urls, err := client.FileURLs(args[0])
		if err != nil {
			printAPIError(cmd, "URLs", err)
			return
		}

		cmd.Printf("%sPath:%s          %s\n", colorDim, colorReset, urls.Path)
		cmd.Printf("%sStorage:%s       %s\n", colorDim, colorReset, urls.StoragePath)
		cmd.Printf("%sPublic:%s        %s\n", colorDim, colorReset, urls.PublicURL)
		cmd.Printf("%sDownload:%s      %s\n", colorDim, colorReset, urls.DownloadURL)
		if urls.PresignedURL != "" {
			cmd.Printf("%sPresigned:%s     %s\n", colorDim, colorReset, urls.PresignedURL)
		}
		cmd.Printf("%sTranscription:%s %s\n", colorDim, colorReset, urls.TranscriptionPath)
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:     "rm [name]",
	Aliases: []string{"delete"},
	Short:   "Delete an uploaded file",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := newClient(cmd)
		if !ok {
			return
		}

		if err := client.DeleteFile(args[0]); err != nil {
			printAPIError(cmd, "Delete", err)
			return
		}
		cmd.Printf("✓ Deleted %s\n", args[0])
	},
}

func init() {
	filesCmd.AddCommand(filesUploadCmd, filesListCmd, filesURLsCmd, filesDeleteCmd)
	rootCmd.AddCommand(filesCmd)
}
