package cmd

import (
	"context"
	"fmt"
	"log"

	"unframe/config"
	"unframe/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO bucket inspection",
	Long:  `List, summarize or prune objects in the configured MinIO bucket.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO target: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to connect to MinIO: %v", err)
		}
		client := storage.GetMinioClient()

		ctx := context.Background()
		objects := client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		})

		if minioDelete {
			if minioPrefix == "" {
				log.Fatal("Delete requires a prefix")
			}
			removed := 0
			for obj := range objects {
				if obj.Err != nil {
					log.Fatalf("Failed to list objects: %v", obj.Err)
				}
				if err := client.RemoveObject(ctx, cfg.MinioBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
					log.Fatalf("Failed to remove %s: %v", obj.Key, err)
				}
				removed++
			}
			fmt.Printf("Removed %d objects under %q\n", removed, minioPrefix)
			return
		}

		var count int
		var totalSize int64
		for obj := range objects {
			if obj.Err != nil {
				log.Fatalf("Failed to list objects: %v", obj.Err)
			}
			count++
			totalSize += obj.Size
			if !minioStats {
				fmt.Printf("%12d  %s\n", obj.Size, obj.Key)
			}
		}
		if minioStats {
			fmt.Printf("%d objects, %d bytes under %q\n", count, totalSize, minioPrefix)
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "filter objects by prefix")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print object count and total size only")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "remove all objects under the prefix")
}
