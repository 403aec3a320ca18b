package dlg

// FileType is the container tag of conversation files.
const FileType = "DLG "

// Struct type tags written by the encoder. The engine ignores them, and so
// does the decoder; they only make the emitted tables self-describing.
const (
	tagEntry   uint32 = 0
	tagReply   uint32 = 1
	tagStart   uint32 = 2
	tagPointer uint32 = 3
	tagParam   uint32 = 4
)

// Field labels of the conversation format. Shared between decode and
// encode so the two can never disagree on spelling.
const (
	lblDelayEntry    = "DelayEntry"
	lblDelayReply    = "DelayReply"
	lblNumWords      = "NumWords"
	lblEndScript     = "EndConversation"
	lblAbortScript   = "EndConverAbort"
	lblPreventZoomIn = "PreventZoomIn"
	lblEntryList     = "EntryList"
	lblReplyList     = "ReplyList"
	lblStartingList  = "StartingList"

	lblAnimation    = "Animation"
	lblAnimLoop     = "AnimLoop"
	lblText         = "Text"
	lblScript       = "Script"
	lblDelay        = "Delay"
	lblComment      = "Comment"
	lblSound        = "Sound"
	lblQuest        = "Quest"
	lblQuestEntry   = "QuestEntry"
	lblSpeaker      = "Speaker"
	lblActionParams = "ActionParams"
	lblRepliesList  = "RepliesList"
	lblEntriesList  = "EntriesList"

	lblActive          = "Active"
	lblIndex           = "Index"
	lblIsChild         = "IsChild"
	lblLinkComment     = "LinkComment"
	lblConditionParams = "ConditionParams"

	lblParamKey   = "Key"
	lblParamValue = "Value"
)
