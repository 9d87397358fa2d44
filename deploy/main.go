package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	flag "github.com/spf13/pflag"
)

const (
	ProjectName = "listing-scraper"
	Environment = "dev"
	Region      = "us-east-1"
)

type DeploymentConfig struct {
	ProjectName      string
	Environment      string
	Region           string
	TargetURL        string
	LambdaZipPath    string
	LambdaMemorySize int32
	LambdaTimeout    int32
}

func main() {
	var (
		deploy  = flag.Bool("deploy", false, "Create the IAM role and the Lambda function")
		update  = flag.Bool("update", false, "Update the Lambda function code and target url")
		destroy = flag.Bool("destroy", false, "Delete the Lambda function and its role")
		invoke  = flag.Bool("invoke", false, "Run one scrape through the deployed function")
		url     = flag.String("url", "", "Listing page to scrape (or set MY_URL)")
		zipPath = flag.String("zip", "../lambda-deployment.zip", "Path to Lambda deployment zip")
		region  = flag.String("region", Region, "AWS region")
	)
	flag.Parse()

	if !*deploy && !*update && !*destroy && !*invoke {
		fmt.Println("Usage:")
		fmt.Println("  deploy --deploy --url=https://...")
		fmt.Println("  deploy --update")
		fmt.Println("  deploy --invoke [--url=https://...]")
		fmt.Println("  deploy --destroy")
		os.Exit(1)
	}

	target := *url
	if target == "" {
		target = os.Getenv("MY_URL")
	}
	if target == "" && *deploy {
		log.Fatal("target url is required. Use --url or set MY_URL")
	}

	cfg := &DeploymentConfig{
		ProjectName:      ProjectName,
		Environment:      Environment,
		Region:           *region,
		TargetURL:        target,
		LambdaZipPath:    *zipPath,
		LambdaMemorySize: 2048, // headless chrome
		LambdaTimeout:    900,
	}

	ctx := context.Background()
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	deployer := NewDeployer(awsCfg, cfg)

	switch {
	case *deploy:
		log.Println("deploying infrastructure...")
		if err := deployer.Deploy(ctx); err != nil {
			log.Fatalf("deployment failed: %v", err)
		}
		log.Println("deployment completed")

	case *update:
		log.Println("updating Lambda function...")
		if err := deployer.UpdateLambda(ctx); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		log.Println("Lambda function updated")

	case *invoke:
		out, err := deployer.Invoke(ctx, cfg.TargetURL)
		if err != nil {
			log.Fatalf("invoke failed: %v", err)
		}
		fmt.Println(string(out))

	case *destroy:
		log.Println("destroying infrastructure...")
		if err := deployer.Destroy(ctx); err != nil {
			log.Fatalf("destroy failed: %v", err)
		}
		log.Println("infrastructure destroyed")
	}
}
