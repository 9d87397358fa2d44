package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

const (
	lambdaAssumeRolePolicy = `{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Principal": {
				"Service": "lambda.amazonaws.com"
			},
			"Action": "sts:AssumeRole"
		}
	]
}`

	lambdaExecutionPolicy = `{
	"Version": "2012-10-17",
	"Statement": [
		{
			"Effect": "Allow",
			"Action": [
				"logs:CreateLogGroup",
				"logs:CreateLogStream",
				"logs:PutLogEvents"
			],
			"Resource": "arn:aws:logs:*:*:*"
		}
	]
}`
)

func (d *Deployer) createIAMRole(ctx context.Context) error {
	getResult, err := d.iamClient.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(d.roleName),
	})
	if err == nil {
		d.roleARN = aws.ToString(getResult.Role.Arn)
		fmt.Printf("   Using existing IAM role: %s\n", d.roleARN)
		return nil
	}

	createResult, err := d.iamClient.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(d.roleName),
		AssumeRolePolicyDocument: aws.String(lambdaAssumeRolePolicy),
		Description:              aws.String("Lambda execution role for the listing scraper"),
		Tags:                     d.tags(),
	})
	if err != nil {
		return fmt.Errorf("failed to create IAM role: %w", err)
	}

	d.roleARN = aws.ToString(createResult.Role.Arn)
	fmt.Printf("   Created IAM role: %s\n", d.roleARN)

	policyResult, err := d.iamClient.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(fmt.Sprintf("%s-execution-policy", d.roleName)),
		PolicyDocument: aws.String(lambdaExecutionPolicy),
		Description:    aws.String("CloudWatch logging for the listing scraper"),
		Tags:           d.tags(),
	})
	if err != nil {
		return fmt.Errorf("failed to create IAM policy: %w", err)
	}

	_, err = d.iamClient.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(d.roleName),
		PolicyArn: policyResult.Policy.Arn,
	})
	if err != nil {
		return fmt.Errorf("failed to attach policy to role: %w", err)
	}
	fmt.Printf("   Attached execution policy: %s\n", aws.ToString(policyResult.Policy.Arn))

	// IAM is eventually consistent; a fresh role cannot be assumed right away.
	fmt.Println("   Waiting for IAM role to be available")
	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (d *Deployer) tags() []types.Tag {
	return []types.Tag{
		{Key: aws.String("Project"), Value: aws.String(d.cfg.ProjectName)},
		{Key: aws.String("Environment"), Value: aws.String(d.cfg.Environment)},
		{Key: aws.String("ManagedBy"), Value: aws.String("aws-sdk-go")},
	}
}

func (d *Deployer) deleteIAMRole(ctx context.Context) error {
	policies, err := d.iamClient.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(d.roleName),
	})
	if err == nil {
		for _, policy := range policies.AttachedPolicies {
			_, err := d.iamClient.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
				RoleName:  aws.String(d.roleName),
				PolicyArn: policy.PolicyArn,
			})
			if err != nil {
				fmt.Printf("   Warning: failed to detach policy %s: %v\n", *policy.PolicyArn, err)
			}

			if !isAWSManagedPolicy(aws.ToString(policy.PolicyArn)) {
				_, err := d.iamClient.DeletePolicy(ctx, &iam.DeletePolicyInput{
					PolicyArn: policy.PolicyArn,
				})
				if err != nil {
					fmt.Printf("   Warning: failed to delete policy %s: %v\n", *policy.PolicyArn, err)
				} else {
					fmt.Printf("   Deleted policy: %s\n", *policy.PolicyArn)
				}
			}
		}
	}

	_, err = d.iamClient.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(d.roleName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete IAM role: %w", err)
	}

	fmt.Printf("   Deleted IAM role: %s\n", d.roleName)
	return nil
}

func isAWSManagedPolicy(arn string) bool {
	return strings.HasPrefix(arn, "arn:aws:iam::aws:policy/")
} 