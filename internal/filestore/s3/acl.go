package s3

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/koustreak/bucketfs/internal/filestore"
)

const allUsersURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// cannedACL collapses a grant list into the canned ACL it corresponds to.
// S3 has no "inherit" ACL, so the result is never filestore.ACLDefault.
func cannedACL(grants []types.Grant) string {
	var read, write bool
	for _, g := range grants {
		if g.Grantee == nil || g.Grantee.Type != types.TypeGroup || aws.ToString(g.Grantee.URI) != allUsersURI {
			continue
		}
		switch g.Permission {
		case types.PermissionRead:
			read = true
		case types.PermissionWrite:
			write = true
		case types.PermissionFullControl:
			read, write = true, true
		}
	}
	switch {
	case read && write:
		return filestore.ACLPublicReadWrite
	case read:
		return filestore.ACLPublicRead
	default:
		return filestore.ACLPrivate
	}
}
