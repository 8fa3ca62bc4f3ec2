package db

import (
	"github.com/softdesk-dev/softdesk/internal/models"
	"gorm.io/gorm"
)

// Cascade deletes are performed explicitly inside the caller's transaction so
// they behave identically on every store, independent of foreign-key pragma
// support. Deletes are hard deletes: a soft-deleted contributor row would
// still occupy the (user, project) unique index and block re-adding the user.

func DeleteIssueCascade(tx *gorm.DB, issueID uint) error {
	if err := tx.Unscoped().Where("issue_id = ?", issueID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}

	return tx.Unscoped().Delete(&models.Issue{}, issueID).Error
}

func DeleteProjectCascade(tx *gorm.DB, projectID uint) error {
	var issueIDs []uint

	if err := tx.Model(&models.Issue{}).Where("project_id = ?", projectID).Pluck("id", &issueIDs).Error; err != nil {
		return err
	}

	if len(issueIDs) > 0 {
		if err := tx.Unscoped().Where("issue_id IN ?", issueIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
	}

	if err := tx.Unscoped().Where("project_id = ?", projectID).Delete(&models.Issue{}).Error; err != nil {
		return err
	}

	if err := tx.Unscoped().Where("project_id = ?", projectID).Delete(&models.Contributor{}).Error; err != nil {
		return err
	}

	return tx.Unscoped().Delete(&models.Project{}, projectID).Error
}

// DeleteUserCascade removes the user together with every resource they
// authored. Issues merely assigned to the user keep existing with a cleared
// assignee.
func DeleteUserCascade(tx *gorm.DB, userID uint) error {
	var projectIDs []uint

	if err := tx.Model(&models.Project{}).Where("author_id = ?", userID).Pluck("id", &projectIDs).Error; err != nil {
		return err
	}

	for _, projectID := range projectIDs {
		if err := DeleteProjectCascade(tx, projectID); err != nil {
			return err
		}
	}

	if err := tx.Model(&models.Issue{}).Where("assignee_id = ?", userID).Update("assignee_id", nil).Error; err != nil {
		return err
	}

	var issueIDs []uint

	if err := tx.Model(&models.Issue{}).Where("author_id = ?", userID).Pluck("id", &issueIDs).Error; err != nil {
		return err
	}

	for _, issueID := range issueIDs {
		if err := DeleteIssueCascade(tx, issueID); err != nil {
			return err
		}
	}

	if err := tx.Unscoped().Where("author_id = ?", userID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}

	if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Contributor{}).Error; err != nil {
		return err
	}

	return tx.Unscoped().Delete(&models.User{}, userID).Error
}
